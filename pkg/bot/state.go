package bot

import (
	"github.com/shopspring/decimal"
	"github.com/shunichi-ikebuchi/paylog/pkg/ledger"
)

// Flow is a multi-step conversation the user is in.
type Flow uint8

const (
	FlowNone Flow = iota
	FlowManual
	FlowLend
	FlowRepay
	FlowTransfer
	FlowBudget
	FlowIncome
	FlowGoal
	FlowBatch
	FlowAsk
)

var flowNames = [...]string{
	FlowNone:     "none",
	FlowManual:   "manual",
	FlowLend:     "lend",
	FlowRepay:    "repay",
	FlowTransfer: "transfer",
	FlowBudget:   "budget",
	FlowIncome:   "income",
	FlowGoal:     "goal",
	FlowBatch:    "batch",
	FlowAsk:      "ask",
}

func (f Flow) String() string {
	if int(f) < len(flowNames) {
		return flowNames[f]
	}
	return "unknown"
}

// State is the input a flow is waiting for.
type State uint8

const (
	StateIdle State = iota
	StatePerson
	StateAmount
	StateDescription
	StateBudgetLines
	StateGoalDetails
	StateBatchLines
	StateQuestion
)

var stateNames = [...]string{
	StateIdle:        "idle",
	StatePerson:      "person",
	StateAmount:      "amount",
	StateDescription: "description",
	StateBudgetLines: "budget_lines",
	StateGoalDetails: "goal_details",
	StateBatchLines:  "batch_lines",
	StateQuestion:    "question",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// transitions lists the states of each flow in order. A flow returns to
// StateIdle after its last state.
var transitions = map[Flow][]State{
	FlowManual:   {StateAmount, StateDescription},
	FlowLend:     {StatePerson, StateAmount, StateDescription},
	FlowRepay:    {StatePerson, StateAmount},
	FlowTransfer: {StateAmount},
	FlowBudget:   {StateBudgetLines},
	FlowIncome:   {StateAmount},
	FlowGoal:     {StateGoalDetails},
	FlowBatch:    {StateBatchLines},
	FlowAsk:      {StateQuestion},
}

// Next returns the state that follows current in flow, and StateIdle
// when the flow is complete or current is not part of it.
func Next(flow Flow, current State) State {
	states := transitions[flow]
	for i, s := range states {
		if s == current && i+1 < len(states) {
			return states[i+1]
		}
	}
	return StateIdle
}

// Session is one user's conversation state. Fields beyond Flow and State
// hold what earlier steps collected.
type Session struct {
	Flow  Flow
	State State

	Kind   ledger.Kind
	Wallet ledger.Wallet
	From   ledger.Wallet
	To     ledger.Wallet
	Person string
	Amount decimal.Decimal
}

// Active reports whether a flow is waiting for input.
func (s Session) Active() bool {
	return s.Flow != FlowNone && s.State != StateIdle
}

// start enters the first state of flow, discarding anything collected by
// a previous flow.
func (s *Session) start(flow Flow) {
	*s = Session{Flow: flow}
	if states := transitions[flow]; len(states) > 0 {
		s.State = states[0]
	}
}

// advance moves to the next state, resetting the session when the flow
// is complete.
func (s *Session) advance() {
	s.State = Next(s.Flow, s.State)
	if s.State == StateIdle {
		s.reset()
	}
}

func (s *Session) reset() {
	*s = Session{}
}
