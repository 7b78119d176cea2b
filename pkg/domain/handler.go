package domain

// HandlerID names one of the five stage handlers.
// It doubles as the prompt configuration name of that handler.
type HandlerID string

const (
	HandlerScenario   HandlerID = "scenario"   // A
	HandlerKnowledge  HandlerID = "knowledge"  // B
	HandlerCoding     HandlerID = "coding"     // C
	HandlerAssessment HandlerID = "assessment" // D
	HandlerTransfer   HandlerID = "transfer"   // E
)

// Handlers lists every handler in routing-table order.
var Handlers = []HandlerID{
	HandlerScenario,
	HandlerKnowledge,
	HandlerCoding,
	HandlerAssessment,
	HandlerTransfer,
}
