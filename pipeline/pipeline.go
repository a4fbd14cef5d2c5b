// Package pipeline implements the BPX request orchestrator: header
// parse, session resolve, full-vs-diff decision, and response
// assembly, per spec § 4.6.
package pipeline

import (
	"github.com/buyukakyuz/bpx"
	"github.com/buyukakyuz/bpx/diff"
	"github.com/buyukakyuz/bpx/protocol"
	"github.com/buyukakyuz/bpx/resource"
	"github.com/buyukakyuz/bpx/state"
)

// Logger is the diagnostic sink for graceful internal-error fallbacks,
// satisfied directly by *bpxlog.Logger.
type Logger interface {
	Warnf(template string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warnf(string, ...any) {}

// Pipeline composes a session store, a resource store, and a diff
// engine into the single request-handling function described in
// spec § 4.6.
type Pipeline struct {
	Config    bpx.Config
	Sessions  state.Store
	Resources resource.Store
	Engine    diff.Engine
	Logger    Logger
}

// New builds a pipeline over the given config, session store, resource
// store, and diff engine.
func New(cfg bpx.Config, sessions state.Store, resources resource.Store, engine diff.Engine) *Pipeline {
	return &Pipeline{
		Config:    cfg,
		Sessions:  sessions,
		Resources: resources,
		Engine:    engine,
		Logger:    noopLogger{},
	}
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Warnf(format, args...)
	}
}

// HandleRequest runs the eight-step pipeline against a parsed request.
// The only error it returns is ClientStateNotFound from the current-
// resource fetch (step 2); every other internal failure degrades
// silently to a full-content response.
func (p *Pipeline) HandleRequest(req *protocol.Request) (*protocol.Response, error) {
	// Step 2: fetch current content. Not-found propagates.
	currentContent, err := p.Resources.GetResource(req.Path)
	if err != nil {
		return nil, err
	}

	// Step 3: compute current version.
	currentVersion := bpx.VersionFromContent(currentContent)

	// Step 4: resolve session.
	sessionID := p.Sessions.GetOrCreateSession(req.SessionID)

	// Step 5: decide mode.
	shouldDiff := p.shouldSendDiff(req, sessionID, currentVersion)

	var body protocol.ResponseBody
	if shouldDiff {
		body = p.tryDiff(req, sessionID, currentContent, currentVersion)
	} else {
		body = protocol.FullBody(currentContent)
	}

	// Step 7: update state then history, best-effort and unconditional.
	p.Sessions.SetVersion(sessionID, req.Path, currentVersion)
	p.Resources.StoreVersion(req.Path, currentVersion, currentContent)

	return &protocol.Response{
		Version:      currentVersion,
		Body:         body,
		SessionID:    sessionID,
		OriginalSize: len(currentContent),
	}, nil
}

// shouldSendDiff implements step 5's strict conjunction: a base
// version must be present, the store's recorded version for
// (session, path) must equal it exactly, that recorded version must
// differ from the current one, and binary-delta must be accepted.
func (p *Pipeline) shouldSendDiff(req *protocol.Request, sessionID bpx.SessionId, currentVersion bpx.Version) bool {
	if req.BaseVersion == nil {
		return false
	}
	storedVersion, ok := p.Sessions.GetVersion(sessionID, req.Path)
	if !ok {
		return false
	}
	versionsMatch := storedVersion == *req.BaseVersion
	contentChanged := storedVersion != currentVersion
	if !versionsMatch || !contentChanged {
		return false
	}
	return bpx.ContainsDiffFormat(req.AcceptedFormats, bpx.BinaryDelta)
}

// tryDiff implements step 6: compute and validate the delta, falling
// back to full content on any internal failure or unworthwhile diff.
func (p *Pipeline) tryDiff(req *protocol.Request, sessionID bpx.SessionId, currentContent []byte, currentVersion bpx.Version) protocol.ResponseBody {
	baseVersion := *req.BaseVersion

	baseContent, err := p.Resources.GetResourceVersion(req.Path, baseVersion)
	if err != nil {
		p.logf("bpx: base version unavailable for %s, falling back to full: %v", req.Path, err)
		return protocol.FullBody(currentContent)
	}

	if len(baseContent) > p.Config.MaxDiffSize || len(currentContent) > p.Config.MaxDiffSize {
		return protocol.FullBody(currentContent)
	}

	diffData, err := p.Engine.ComputeDiff(baseContent, currentContent)
	if err != nil {
		p.logf("bpx: diff computation failed for %s, falling back to full: %v", req.Path, err)
		return protocol.FullBody(currentContent)
	}

	if !p.Engine.IsDiffWorthwhile(len(currentContent), len(diffData)) {
		return protocol.FullBody(currentContent)
	}

	return protocol.DiffBody(bpx.BinaryDelta, diffData)
}
