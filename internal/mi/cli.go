// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"strings"
)

// CLICategory describes the effect a free-text CLI command has on debugger state.
type CLICategory int

const (
	CLIOrdinary CLICategory = iota
	CLIStepping
	CLIBreakpointSet
	CLIWatchpointSet
	CLIBreakpointMutate
	CLIBreakpointDelete
	CLISignalMapping
	CLIDetach
)

func (c CLICategory) String() string {
	switch c {
	case CLIStepping:
		return "stepping"
	case CLIBreakpointSet:
		return "breakpoint-set"
	case CLIWatchpointSet:
		return "watchpoint-set"
	case CLIBreakpointMutate:
		return "breakpoint-mutate"
	case CLIBreakpointDelete:
		return "breakpoint-delete"
	case CLISignalMapping:
		return "signal-mapping"
	case CLIDetach:
		return "detach"
	default:
		return "ordinary"
	}
}

// RunningType tells which operation set the inferior running.
type RunningType string

const (
	RunningNone            RunningType = ""
	RunningNext            RunningType = "next"
	RunningNextInstruction RunningType = "nexti"
	RunningStep            RunningType = "step"
	RunningStepInstruction RunningType = "stepi"
	RunningUntil           RunningType = "until"
	RunningFinish          RunningType = "finish"
	RunningContinue        RunningType = "continue"
	RunningRun             RunningType = "run"
	RunningSignal          RunningType = "signal"
	RunningJump            RunningType = "jump"
	RunningUnknown         RunningType = "unknown"
)

// CLIClass is the classification of a CLI command.
type CLIClass struct {
	Category CLICategory

	// Verb is the canonical (unabbreviated) command name; empty for ordinary commands.
	Verb string

	// RunningType is set for stepping commands.
	RunningType RunningType

	// Args is the text following the verb.
	Args string
}

type cliVerb struct {
	canonical   string
	minAbbrev   string
	aliases     []string
	category    CLICategory
	runningType RunningType
}

var cliVerbs = []cliVerb{
	{"next", "nex", []string{"n"}, CLIStepping, RunningNext},
	{"nexti", "nexti", []string{"ni"}, CLIStepping, RunningNextInstruction},
	{"step", "ste", []string{"s"}, CLIStepping, RunningStep},
	{"stepi", "stepi", []string{"si"}, CLIStepping, RunningStepInstruction},
	{"until", "unt", []string{"u"}, CLIStepping, RunningUntil},
	{"finish", "fin", nil, CLIStepping, RunningFinish},
	{"continue", "cont", []string{"c", "fg"}, CLIStepping, RunningContinue},
	{"run", "ru", []string{"r"}, CLIStepping, RunningRun},
	{"signal", "sig", nil, CLIStepping, RunningSignal},
	{"jump", "ju", []string{"j"}, CLIStepping, RunningJump},

	{"break", "brea", []string{"b"}, CLIBreakpointSet, RunningNone},
	{"tbreak", "tb", nil, CLIBreakpointSet, RunningNone},
	{"hbreak", "hb", nil, CLIBreakpointSet, RunningNone},
	{"thbreak", "thb", nil, CLIBreakpointSet, RunningNone},
	{"rbreak", "rb", nil, CLIBreakpointSet, RunningNone},

	{"watch", "wa", nil, CLIWatchpointSet, RunningNone},
	{"rwatch", "rw", nil, CLIWatchpointSet, RunningNone},
	{"awatch", "aw", nil, CLIWatchpointSet, RunningNone},

	{"enable", "en", nil, CLIBreakpointMutate, RunningNone},
	{"disable", "disa", []string{"dis"}, CLIBreakpointMutate, RunningNone},
	{"ignore", "ign", nil, CLIBreakpointMutate, RunningNone},
	{"condition", "cond", nil, CLIBreakpointMutate, RunningNone},

	{"delete", "del", []string{"d"}, CLIBreakpointDelete, RunningNone},
	{"clear", "cl", nil, CLIBreakpointDelete, RunningNone},

	{"handle", "han", nil, CLISignalMapping, RunningNone},

	{"detach", "det", nil, CLIDetach, RunningNone},
}

// Running types of MI execution commands, used when such a command is answered with ^running.
var execRunningTypes = map[string]RunningType{
	"-exec-next":             RunningNext,
	"-exec-next-instruction": RunningNextInstruction,
	"-exec-step":             RunningStep,
	"-exec-step-instruction": RunningStepInstruction,
	"-exec-until":            RunningUntil,
	"-exec-finish":           RunningFinish,
	"-exec-continue":         RunningContinue,
	"-exec-run":              RunningRun,
	"-exec-jump":             RunningJump,
}

const consoleExecPrefix = "-interpreter-exec console "

// ClassifyCLI infers the state effect of a command from its leading verb.
// A verb matches when it equals the canonical name or one of its aliases,
// or when it is a prefix of the canonical name at least as long as the minimal abbreviation
// ("brea" is "break", "br" is not).
// MI commands are ordinary, except for "-interpreter-exec console" whose CLI payload is classified.
// Anything unrecognized or ambiguous is ordinary; classification never fails.
func ClassifyCLI(text string) CLIClass {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, consoleExecPrefix) {
		payload := strings.TrimSpace(strings.TrimPrefix(text, consoleExecPrefix))
		if !strings.HasPrefix(payload, `"`) {
			return ClassifyCLI(payload)
		}
		p := &lineParser{line: payload}
		if inner, err := p.cstring(); err == nil {
			return ClassifyCLI(inner)
		}
		return CLIClass{Category: CLIOrdinary}
	}

	if text == "" || text[0] == '-' {
		return CLIClass{Category: CLIOrdinary}
	}

	verb, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	if v, found := lookupVerb(verb); found {
		return CLIClass{
			Category:    v.category,
			Verb:        v.canonical,
			RunningType: v.runningType,
			Args:        args,
		}
	}
	return CLIClass{Category: CLIOrdinary, Args: args}
}

func lookupVerb(token string) (cliVerb, bool) {
	for _, v := range cliVerbs {
		if token == v.canonical {
			return v, true
		}
		for _, a := range v.aliases {
			if token == a {
				return v, true
			}
		}
	}

	for _, v := range cliVerbs {
		if len(token) >= len(v.minAbbrev) && strings.HasPrefix(v.canonical, token) {
			return v, true
		}
	}

	return cliVerb{}, false
}

// execRunningType returns the running type of a structured execution command, if it is one.
func execRunningType(operation string) (RunningType, bool) {
	verb, _, _ := strings.Cut(strings.TrimSpace(operation), " ")
	rt, found := execRunningTypes[verb]
	return rt, found
}
