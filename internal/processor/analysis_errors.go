package processor

import (
	"errors"
	"fmt"
)

// 分析过程中的错误分类，只用于日志、指标和链路追踪，不会越过 Summarize/Answer 返回给调用方
var (
	ErrInputTooShort      = errors.New("输入文本过短")
	ErrModelFailure       = errors.New("模型调用失败")
	ErrUnrecognizedOutput = errors.New("无法识别模型输出")
)

// StageError 带阶段信息的错误
type StageError struct {
	Stage   string
	BaseErr error
	Detail  string
}

func (e *StageError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (阶段:%s): %s", e.BaseErr, e.Stage, e.Detail)
	}
	return fmt.Sprintf("%s (阶段:%s)", e.BaseErr, e.Stage)
}

func (e *StageError) Unwrap() error {
	return e.BaseErr
}

// Is 实现 errors.Is 接口以支持错误比较
func (e *StageError) Is(target error) bool {
	return errors.Is(e.BaseErr, target)
}

// NewModelError 模型调用失败
func NewModelError(stage string, cause error) error {
	detail := ""
	if cause != nil {
		detail = cause.Error()
	}
	return &StageError{Stage: stage, BaseErr: ErrModelFailure, Detail: detail}
}

// NewUnrecognizedError 模型输出无法使用
func NewUnrecognizedError(stage, detail string) error {
	return &StageError{Stage: stage, BaseErr: ErrUnrecognizedOutput, Detail: detail}
}

// NewInputTooShortError 输入过短
func NewInputTooShortError(stage string, length int) error {
	return &StageError{Stage: stage, BaseErr: ErrInputTooShort, Detail: fmt.Sprintf("长度 %d", length)}
}

// outcomeOf 将错误映射为指标标签
func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnrecognizedOutput):
		return "unrecognized"
	case errors.Is(err, ErrInputTooShort):
		return "too_short"
	default:
		return "failure"
	}
}
