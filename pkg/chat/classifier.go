package chat

import (
	"context"
	"regexp"
	"time"

	"github.com/ib-77/chatflow/pkg/flow"
	"github.com/ib-77/chatflow/pkg/flow/bus"
)

// Category is the intent the classifier assigns to a message.
type Category string

const (
	Greeting  Category = "greeting"
	Farewell  Category = "farewell"
	Question  Category = "question"
	Command   Category = "command"
	Gratitude Category = "gratitude"
	Apology   Category = "apology"
	Agreement Category = "agreement"
	Negation  Category = "negation"
	General   Category = "general"
)

// Fields added by the classifier.
const (
	FieldClassification = "classification"
	FieldClassifiedAt   = "classifiedAt"
	FieldClassifiedDate = "classifiedDate"
	FieldClassifiedTime = "classifiedTime"
)

const (
	ClassifierStage = "classifier"

	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

type pattern struct {
	category Category
	re       *regexp.Regexp
}

// first match wins
var patterns = []pattern{
	{Greeting, regexp.MustCompile(`(?i)^(hi|hello|hey|howdy|greetings|good\s*(morning|afternoon|evening))\b`)},
	{Farewell, regexp.MustCompile(`(?i)\b(bye|goodbye|see\s*you|take\s*care|farewell|good\s*night)\b`)},
	{Question, regexp.MustCompile(`(?i)\?$|^(what|who|where|when|why|how|can|could|would|should|is|are|do|does|did)\b`)},
	{Command, regexp.MustCompile(`(?i)^(please\s+)?(show|list|find|get|set|create|delete|remove|update|run|stop|start|open|close|help)\b`)},
	{Gratitude, regexp.MustCompile(`(?i)\b(thanks?|thank\s*you|thx|appreciate|grateful)\b`)},
	{Apology, regexp.MustCompile(`(?i)\b(sorry|apologi[zs]e|my\s*bad|excuse\s*me|pardon)\b`)},
	{Agreement, regexp.MustCompile(`(?i)^(yes|yeah|yep|sure|okay|ok|absolutely|definitely|correct|right|agreed)\b`)},
	{Negation, regexp.MustCompile(`(?i)^(no|nah|nope|not\s|never|neither|don'?t)\b`)},
}

// Categories lists every category in matching order, General last.
func Categories() []Category {
	out := make([]Category, 0, len(patterns)+1)
	for _, p := range patterns {
		out = append(out, p.category)
	}
	return append(out, General)
}

// Classify returns the category of the first pattern text matches, or General.
func Classify(text string) Category {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.category
		}
	}
	return General
}

// Classifier is the stage factory for the "classifier" stage.
func Classifier(b *bus.Bus) flow.Stage {
	return NewClassifier(ClassifierStage)(b)
}

// NewClassifier returns a classifier stage factory registered under name.
func NewClassifier(name string) flow.StageFactory {
	return flow.StageFunc(name, classify)
}

func classify(_ context.Context, item flow.Item) (flow.Item, error) {
	category := Classify(item.Text())
	now := time.Now()

	return item.
		With(FieldClassification, string(category)).
		With(FieldClassifiedAt, now).
		With(FieldClassifiedDate, now.UTC().Format(dateLayout)).
		With(FieldClassifiedTime, now.Format(timeLayout)), nil
}

// ClassificationOf returns the category the classifier stored on item, or ""
// when the item was not classified.
func ClassificationOf(item flow.Item) Category {
	return Category(item.String(FieldClassification))
}
