package chat

import (
	"github.com/ib-77/chatflow/pkg/flow"
)

// NewEngine builds the chat pipeline: classifier, then responder.
func NewEngine(opts ...flow.Option) (*flow.Engine, error) {
	b := flow.NewBuilder(opts...)
	if err := b.AddStage(ClassifierStage, Classifier); err != nil {
		return nil, err
	}
	if err := b.AddStage(ResponderStage, Responder); err != nil {
		return nil, err
	}
	return b.Build()
}
