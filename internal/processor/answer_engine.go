package processor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"smart-resume-analyzer/internal/llm"
	"smart-resume-analyzer/internal/logger"
	"smart-resume-analyzer/internal/parser"
	"smart-resume-analyzer/internal/tracing"
	"smart-resume-analyzer/internal/types"
)

const (
	// InsufficientResumeMessage 简历过短时的理由
	InsufficientResumeMessage = "Currículo não contém informações suficientes para análise."

	minResumeLength = 20
	// minModelJustificationLength 模型理由须超过该长度才被采纳
	minModelJustificationLength = 20
)

// answerState 回答流程的状态
type answerState int

const (
	stateInsufficient answerState = iota
	stateHeuristicAttempt
	stateModelAttempt
	stateDegrade
	stateDone
)

func (s answerState) String() string {
	switch s {
	case stateInsufficient:
		return "insufficient"
	case stateHeuristicAttempt:
		return "heuristic_attempt"
	case stateModelAttempt:
		return "model_attempt"
	case stateDegrade:
		return "degrade"
	default:
		return "done"
	}
}

// answerRun 单次回答过程中的数据
type answerRun struct {
	resume    string
	query     string
	heuristic types.HeuristicResult
	decision  types.Decision
	terminal  answerState
}

// Engine 回答决策引擎：规则优先，模型兜底，模型失败时退化回规则结论
type Engine struct {
	model          llm.ModelAdapter
	recorder       Recorder
	tracer         trace.Tracer
	promptTemplate string
	genOpts        llm.GenerateOptions
}

// EngineOption 引擎配置选项
type EngineOption func(*Engine)

// WithRecorder 设置统计接收者
func WithRecorder(r Recorder) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.recorder = r
		}
	}
}

// WithGenerateOptions 覆盖默认解码参数
func WithGenerateOptions(opts llm.GenerateOptions) EngineOption {
	return func(e *Engine) {
		e.genOpts = opts
	}
}

// WithPromptTemplate 设置自定义提示词模板，需包含两个 %s（简历、问题）
func WithPromptTemplate(template string) EngineOption {
	return func(e *Engine) {
		e.promptTemplate = template
	}
}

// NewEngine 创建回答引擎，model 为 nil 时视为模型不可用
func NewEngine(model llm.ModelAdapter, opts ...EngineOption) *Engine {
	if model == nil {
		model = llm.Unavailable{}
	}
	e := &Engine{
		model:          model,
		recorder:       nopRecorder{},
		tracer:         otel.Tracer("smart-resume-analyzer/processor"),
		promptTemplate: DefaultAnswerPromptTemplate,
		genOpts:        llm.DefaultGenerateOptions(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Answer 判断简历是否满足问题，总会返回一个决策
func (e *Engine) Answer(ctx context.Context, resumeText, query string) types.Decision {
	ctx, span := e.tracer.Start(ctx, "AnswerEngine.Answer")
	defer span.End()

	run := &answerRun{resume: resumeText, query: query}
	state := stateInsufficient
	for state != stateDone {
		next := e.step(ctx, span, state, run)
		if next == stateDone {
			run.terminal = state
		}
		state = next
	}

	span.SetAttributes(
		attribute.String("decision.answer", string(run.decision.Answer)),
		attribute.String("decision.source", string(run.decision.Source)),
		attribute.String("decision.terminal_state", run.terminal.String()),
	)
	e.recorder.ObserveDecision(run.decision.Source, run.decision.Answer)
	logger.Debug().
		Str("terminal_state", run.terminal.String()).
		Str("answer", string(run.decision.Answer)).
		Str("source", string(run.decision.Source)).
		Msg("回答决策完成")
	return run.decision
}

func (e *Engine) step(ctx context.Context, span trace.Span, state answerState, run *answerRun) answerState {
	switch state {
	case stateInsufficient:
		if utf8.RuneCountInString(strings.TrimSpace(run.resume)) < minResumeLength {
			run.decision = types.NewDecision(types.AnswerNo, InsufficientResumeMessage, types.SourceFallback)
			return stateDone
		}
		return stateHeuristicAttempt

	case stateHeuristicAttempt:
		run.heuristic = Analyze(run.resume, run.query)
		if run.heuristic.Confident && run.heuristic.Decision.Answer.IsDefinitive() {
			run.decision = run.heuristic.Decision
			return stateDone
		}
		return stateModelAttempt

	case stateModelAttempt:
		decision, err := e.attemptModel(ctx, run)
		e.recorder.ObserveModelCall("generate", outcomeOf(err))
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeModel)
			logger.Warn().Err(err).Msg("模型回答不可用，退化为规则结论")
			return stateDegrade
		}
		run.decision = decision
		return stateDone

	default:
		run.decision = run.heuristic.Decision
		return stateDone
	}
}

// attemptModel 模型后端的 panic 转为错误，由调用方退化处理
func (e *Engine) attemptModel(ctx context.Context, run *answerRun) (decision types.Decision, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("模型回答时发生异常")
			decision = types.Decision{}
			err = NewModelError("generate", fmt.Errorf("panic: %v", r))
		}
	}()

	prompt := BuildAnswerPrompt(e.promptTemplate, run.resume, run.query)
	output, err := e.model.Generate(ctx, prompt, e.genOpts)
	if err != nil {
		return types.Decision{}, NewModelError("generate", err)
	}

	answer, justification := parser.ParseModelOutput(output)
	if !answer.IsDefinitive() {
		return types.Decision{}, NewUnrecognizedError("parse", string(answer)+": "+tracing.SafeResumeContent(justification))
	}
	if utf8.RuneCountInString(justification) <= minModelJustificationLength {
		return types.Decision{}, NewUnrecognizedError("parse", "justificativa curta")
	}
	return types.NewDecision(answer, justification, types.SourceModel), nil
}
