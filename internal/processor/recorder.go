package processor

import "smart-resume-analyzer/internal/types"

// Recorder 接收分析过程的统计事件，由 metrics 包实现
type Recorder interface {
	ObserveDecision(source types.Source, answer types.Answer)
	ObserveSummary(path string)
	ObserveModelCall(operation, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveDecision(types.Source, types.Answer) {}
func (nopRecorder) ObserveSummary(string) {}
func (nopRecorder) ObserveModelCall(string, string) {}
