package compiler

import (
	"encoding/json"
	"time"

	"github.com/sirupsen/logrus"
)

// The logging channels are process-wide and read at request start. Hosts
// configure output, level and hooks through Logger().
var baseLogger = newBaseLogger()

func newBaseLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Logger returns the engine logger. All observation channels are entries
// of this logger; records are emitted at debug level.
func Logger() *logrus.Logger {
	return baseLogger
}

var (
	logPhases       = baseLogger.WithField("channel", "phases")
	logCompilations = baseLogger.WithField("channel", "compilations")
	logBailouts     = baseLogger.WithField("channel", "bailouts")
	logSizes        = baseLogger.WithField("channel", "automaton-sizes")
)

// phaseTimer logs "Start" / "End, elapsed: T" pairs per named phase. It
// is allocated only when the phases channel is enabled; the nil timer is
// a no-op. Phases nest in LIFO order.
type phaseTimer struct {
	names  []string
	starts []time.Time
}

func newPhaseTimer() *phaseTimer {
	if !baseLogger.IsLevelEnabled(logrus.DebugLevel) {
		return nil
	}
	return &phaseTimer{}
}

// Start opens a phase.
func (t *phaseTimer) Start(name string) {
	if t == nil {
		return
	}
	t.names = append(t.names, name)
	t.starts = append(t.starts, time.Now())
	logPhases.Debugf("%s Start", name)
}

// End closes the innermost open phase.
func (t *phaseTimer) End() {
	if t == nil {
		return
	}
	last := len(t.names) - 1
	name, started := t.names[last], t.starts[last]
	t.names, t.starts = t.names[:last], t.starts[:last]
	elapsed := time.Since(started)
	logPhases.Debugf("%s End, elapsed: %s", name, elapsed)
	compilePhaseSeconds.WithLabelValues(name).Observe(elapsed.Seconds())
}

// Compiler result values of the automaton-size record.
const (
	ResultAutomaton = "automaton"
	ResultLiteral   = "literal"
	ResultDead      = "dead"
	ResultBailout   = "bailout"
)

// AutomatonSizeRecord is the structured per-request size record, emitted
// exactly once per compilation — on success and on unsupported patterns
// alike.
type AutomatonSizeRecord struct {
	Pattern        string `json:"pattern"`
	Flags          string `json:"flags"`
	Props          string `json:"props"`
	ASTNodes       int    `json:"astNodes"`
	NFAStates      int    `json:"nfaStates"`
	NFATransitions int    `json:"nfaTransitions"`
	DFAStatesFwd   int    `json:"dfaStatesFwd"`
	DFAStatesBck   int    `json:"dfaStatesBck"`
	DFAStatesCG    int    `json:"dfaStatesCG"`
	TraceFinder    bool   `json:"traceFinder"`
	CompilerResult string `json:"compilerResult"`
}

// emit writes the record as one JSON line on the automaton-sizes channel
// and counts the result. Never fails; disabled channels drop the line.
func (r *AutomatonSizeRecord) emit() {
	compilationsTotal.WithLabelValues(r.CompilerResult).Inc()
	if !baseLogger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	logSizes.Debug(string(data))
}
