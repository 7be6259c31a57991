package command

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/minikv/minikv/server/internal/store"
)

// Terminator ends every response line on the wire.
const Terminator = "\r\n"

// Response lines.
const (
	RespOK           = "OK"
	RespNil          = "Nil"
	RespYes          = "YES"
	RespNo           = "NO"
	RespPong         = "PONG"
	RespUnknown      = "Unknown command"
	RespEmpty        = "Error: Empty command"
	RespKeyNotExists = "Error: Key does not exist"
)

// unknownVerb is the counter bucket for unrecognized verbs.
const unknownVerb = "UNKNOWN"

// maxTTLSeconds keeps ttl*time.Second within time.Duration.
const maxTTLSeconds = uint64(math.MaxInt64 / int64(time.Second))

// ErrEmptyCommand is returned by Parse for a line with no tokens.
var ErrEmptyCommand = errors.New("command: empty command")

// ArityError reports a command with fewer arguments than its verb needs.
type ArityError struct {
	Verb string
	Min  int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s command requires at least %d arguments", e.Verb, e.Min)
}

// Command is one parsed request line.
type Command struct {
	// Verb is the first token, upper-cased.
	Verb string
	// Args are the remaining tokens in order.
	Args []string
}

// Parse splits line on whitespace into a verb and its arguments.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrEmptyCommand
	}
	return Command{Verb: strings.ToUpper(fields[0]), Args: fields[1:]}, nil
}

type verb struct {
	minArgs int
	run     func(in *Interpreter, args []string) string
}

var verbs = map[string]verb{
	"SET":      {2, (*Interpreter).set},
	"GET":      {1, (*Interpreter).get},
	"UPDATE":   {2, (*Interpreter).update},
	"DEL":      {1, (*Interpreter).del},
	"DELETE":   {1, (*Interpreter).del},
	"EXISTS":   {1, (*Interpreter).exists},
	"RENAME":   {2, (*Interpreter).rename},
	"TYPE":     {1, (*Interpreter).typeOf},
	"CLEARALL": {0, (*Interpreter).clearAll},
	"PING":     {0, (*Interpreter).ping},
}

// Interpreter maps request lines onto store operations and renders one
// response line per request. It holds no per-connection state and is safe
// for concurrent use.
type Interpreter struct {
	store  *store.Store
	counts map[string]*atomic.Uint64
}

// New creates an Interpreter operating on st.
func New(st *store.Store) *Interpreter {
	counts := make(map[string]*atomic.Uint64, len(verbs)+1)
	for v := range verbs {
		counts[v] = new(atomic.Uint64)
	}
	counts[unknownVerb] = new(atomic.Uint64)
	return &Interpreter{store: st, counts: counts}
}

// Execute runs one request line and returns the response without Terminator.
// An argument-count failure returns the error line without touching the store.
func (in *Interpreter) Execute(line string) string {
	cmd, err := Parse(line)
	if err != nil {
		return RespEmpty
	}
	return in.Dispatch(cmd)
}

// Respond is Execute with Terminator appended, ready for the wire.
func (in *Interpreter) Respond(line string) []byte {
	return []byte(in.Execute(line) + Terminator)
}

// Dispatch runs an already parsed command.
func (in *Interpreter) Dispatch(cmd Command) string {
	v, ok := verbs[cmd.Verb]
	if !ok {
		in.counts[unknownVerb].Add(1)
		return RespUnknown
	}
	in.counts[cmd.Verb].Add(1)
	if len(cmd.Args) < v.minArgs {
		return errorLine(&ArityError{Verb: cmd.Verb, Min: v.minArgs})
	}
	return v.run(in, cmd.Args)
}

// Counts returns how many commands each verb has received, including
// unrecognized verbs under "UNKNOWN".
func (in *Interpreter) Counts() map[string]uint64 {
	out := make(map[string]uint64, len(in.counts))
	for v, c := range in.counts {
		out[v] = c.Load()
	}
	return out
}

// --- verb handlers ----------------------------------------------------------

func (in *Interpreter) set(args []string) string {
	in.store.Set(args[0], ParseValue(args[1]), in.ttlArg(args, 2))
	return RespOK
}

func (in *Interpreter) get(args []string) string {
	v, ok := in.store.Get(args[0])
	if !ok {
		return RespNil
	}
	return RenderValue(v) + ", type: " + v.TypeName()
}

func (in *Interpreter) update(args []string) string {
	err := in.store.Update(args[0], ParseValue(args[1]), in.ttlArg(args, 2))
	if errors.Is(err, store.ErrKeyNotFound) {
		return RespKeyNotExists
	}
	return RespOK
}

func (in *Interpreter) del(args []string) string {
	in.store.Delete(args[0])
	return RespOK
}

func (in *Interpreter) exists(args []string) string {
	if in.store.Exists(args[0]) {
		return RespYes
	}
	return RespNo
}

func (in *Interpreter) rename(args []string) string {
	if err := in.store.Rename(args[0], args[1]); errors.Is(err, store.ErrKeyNotFound) {
		return RespKeyNotExists
	}
	return RespOK
}

func (in *Interpreter) typeOf(args []string) string {
	v, ok := in.store.Get(args[0])
	if !ok {
		return RespNil
	}
	return v.TypeName()
}

func (in *Interpreter) clearAll([]string) string {
	in.store.Clear()
	return RespOK
}

func (in *Interpreter) ping([]string) string {
	return RespPong
}

// --- helpers ----------------------------------------------------------------

// ttlArg reads an optional TTL in whole seconds at args[i]. A missing or
// unparseable value yields the store's default TTL.
func (in *Interpreter) ttlArg(args []string, i int) time.Duration {
	if i >= len(args) {
		return in.store.DefaultTTL()
	}
	// An unsigned integer may carry one leading '+'.
	secs, err := strconv.ParseUint(strings.TrimPrefix(args[i], "+"), 10, 64)
	if err != nil {
		return in.store.DefaultTTL()
	}
	if secs > maxTTLSeconds {
		secs = maxTTLSeconds
	}
	return time.Duration(secs) * time.Second
}

func errorLine(err error) string {
	return "Error: " + err.Error()
}
