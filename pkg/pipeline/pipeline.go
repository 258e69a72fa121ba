// Package pipeline runs one translation cycle per operator submission:
// guard, remote translation, local fallback, transcript append.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/miniheartx/heartx/pkg/bus"
	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/remote"
	"github.com/miniheartx/heartx/pkg/session"
	"github.com/miniheartx/heartx/pkg/synth"
	"github.com/miniheartx/heartx/pkg/tracing"
	"github.com/miniheartx/heartx/pkg/translate"
)

var (
	// ErrEmptyInput rejects submissions that are blank after trimming.
	ErrEmptyInput = errors.New("empty input")
	// ErrBusy rejects submissions that arrive while a cycle is running.
	ErrBusy = errors.New("a translation is already in progress")
)

// TimestampLayout is the transcript's wall-clock format.
const TimestampLayout = "15:04:05"

// RemoteTranslator is satisfied by *remote.Client.
type RemoteTranslator interface {
	Translate(ctx context.Context, req remote.Request) (remote.Reply, error)
}

// Source records which path produced a Result.
type Source string

const (
	SourceRemote   Source = "remote"
	SourceLocal    Source = "local"
	SourceFallback Source = "unavailable"
)

// Result is the transient outcome of a translation, consumed immediately to
// build a transcript entry.
type Result struct {
	Command string
	Output  []string
	Type    session.Classification
	Source  Source
}

type Options struct {
	// Remote is tried first. Nil runs fully offline.
	Remote RemoteTranslator
	// Local defaults to the built-in rule table.
	Local *translate.Translator
	// Bus, when set, receives every appended entry.
	Bus *bus.EntryBus
	// Timeout bounds the remote call. Zero means remote.DefaultTimeout.
	Timeout time.Duration
	// RemoteLabel names the service in remediation text, usually its URL.
	RemoteLabel string
	Now         func() time.Time
	NewID       func() string
}

type Pipeline struct {
	sess        *session.Session
	remote      RemoteTranslator
	local       *translate.Translator
	bus         *bus.EntryBus
	timeout     time.Duration
	remoteLabel string
	now         func() time.Time
	newID       func() string
}

func New(sess *session.Session, opts Options) *Pipeline {
	if sess == nil {
		sess = session.New(session.DefaultMode)
	}
	local := opts.Local
	if local == nil {
		local = translate.New(nil)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = remote.DefaultTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	label := strings.TrimSpace(opts.RemoteLabel)
	if label == "" {
		label = "not configured"
	}
	return &Pipeline{
		sess:        sess,
		remote:      opts.Remote,
		local:       local,
		bus:         opts.Bus,
		timeout:     timeout,
		remoteLabel: label,
		now:         now,
		newID:       newID,
	}
}

// Submit runs one translation cycle for raw. It returns ErrEmptyInput or
// ErrBusy without touching the transcript; otherwise exactly one entry is
// appended and returned, whatever happened to the remote call.
func (p *Pipeline) Submit(ctx context.Context, raw string) (session.Entry, error) {
	input := strings.TrimSpace(raw)
	if input == "" {
		return session.Entry{}, ErrEmptyInput
	}

	guard := p.sess.Guard()
	if !guard.TryBegin() {
		logger.DebugCF("pipeline", "Submission rejected while busy", map[string]interface{}{
			"session_id": p.sess.ID,
			"input":      input,
		})
		return session.Entry{}, ErrBusy
	}
	defer guard.End()

	mode := p.sess.Mode()
	ctx, span := tracing.StartSpan(ctx, "pipeline.Submit")
	span.SetAttributes(map[string]string{"mode": string(mode), "session_id": p.sess.ID})

	started := time.Now()
	res := p.resolve(ctx, input, mode)

	entry := session.Entry{
		ID:        p.newID(),
		Timestamp: p.now().Format(TimestampLayout),
		Input:     input,
		Command:   res.Command,
		Output:    res.Output,
		Type:      res.Type,
		Mode:      mode,
	}
	p.sess.History().Append(entry)

	if p.bus != nil {
		if err := p.bus.TryPublish(entry); err != nil {
			logger.DebugCF("pipeline", "Entry not published", map[string]interface{}{
				"entry_id": entry.ID,
				"error":    err.Error(),
			})
		}
	}

	logger.InfoCF("pipeline", "Translation cycle complete", map[string]interface{}{
		"session_id":  p.sess.ID,
		"entry_id":    entry.ID,
		"source":      string(res.Source),
		"type":        string(res.Type),
		"duration_ms": time.Since(started).Milliseconds(),
	})
	span.SetAttributes(map[string]string{"source": string(res.Source), "type": string(res.Type)})
	span.End(nil)
	return entry, nil
}

func (p *Pipeline) resolve(ctx context.Context, input string, mode session.Mode) Result {
	if p.remote == nil {
		return p.translateLocally(input)
	}

	rctx, cancel := context.WithTimeout(ctx, p.timeout)
	rctx, span := tracing.StartSpan(rctx, "remote.Translate")
	reply, err := p.remote.Translate(rctx, remote.Request{Input: input, Mode: mode})
	span.End(err)
	cancel()

	if err == nil {
		out := make([]string, len(reply.Output))
		copy(out, reply.Output)
		return Result{Command: reply.Command, Output: out, Type: reply.Type, Source: SourceRemote}
	}

	logger.WarnCF("pipeline", "Remote translation failed, using local rules", map[string]interface{}{
		"session_id": p.sess.ID,
		"remote":     p.remoteLabel,
		"error":      err.Error(),
	})

	local := p.local.Translate(input)
	if local.Untranslatable {
		return unavailable(input, err, p.remoteLabel)
	}
	out := synth.Synthesize(local.Command)
	return Result{Command: local.Command, Output: out.Lines, Type: out.Type, Source: SourceLocal}
}

func (p *Pipeline) translateLocally(input string) Result {
	local := p.local.Translate(input)
	out := synth.Synthesize(local.Command)
	return Result{Command: local.Command, Output: out.Lines, Type: out.Type, Source: SourceLocal}
}

// unavailable builds the entry shown when neither the service nor the local
// table produced a command.
func unavailable(input string, cause error, label string) Result {
	return Result{
		Command: translate.CommentPrefix + " " + input,
		Output: []string{
			remoteFailure(cause),
			"No local phrase matched this request either.",
			"To fix:",
			"  1. Start the translation service (heartx serve) and check it is listening.",
			"  2. Check remote.url in the config (currently " + label + ").",
			"  3. Rephrase with a known phrase, e.g. \"scan ports on 10.0.0.1\" or \"check network connections\".",
		},
		Type:   session.Error,
		Source: SourceFallback,
	}
}

// Entries returns the transcript in display order.
func (p *Pipeline) Entries() []session.Entry {
	return p.sess.History().All()
}

func (p *Pipeline) Busy() bool {
	return p.sess.Guard().Busy()
}

func (p *Pipeline) Mode() session.Mode {
	return p.sess.Mode()
}

func (p *Pipeline) SetMode(m session.Mode) bool {
	return p.sess.SetMode(m)
}

func (p *Pipeline) Session() *session.Session {
	return p.sess
}

// Offline reports whether no remote translator is configured.
func (p *Pipeline) Offline() bool {
	return p.remote == nil
}

// Rules exposes the local phrase table, for help screens.
func (p *Pipeline) Rules() []translate.Rule {
	return p.local.Rules()
}

// remoteFailure describes cause in one line. A service that answered with a
// bad status or body is reported differently from one that never answered.
func remoteFailure(cause error) string {
	if cause == nil {
		return "Translation service is unreachable: no reply"
	}
	reason := strings.TrimPrefix(cause.Error(), remote.ErrUnavailable.Error()+": ")
	var status *remote.StatusError
	switch {
	case errors.As(cause, &status):
		return "Translation service returned an unusable reply: " +
			strings.TrimPrefix(status.Error(), "translation service returned ")
	case errors.Is(cause, remote.ErrMalformedReply):
		reason = strings.TrimPrefix(reason, remote.ErrMalformedReply.Error()+": ")
		return "Translation service returned an unusable reply: " + reason
	}
	return "Translation service is unreachable: " + reason
}
