package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ormasoftchile/clickcheck/pkg/config"
	"github.com/ormasoftchile/clickcheck/pkg/datastore"
	"github.com/ormasoftchile/clickcheck/pkg/evidence"
	"github.com/ormasoftchile/clickcheck/pkg/extract"
	"github.com/ormasoftchile/clickcheck/pkg/health"
	"github.com/ormasoftchile/clickcheck/pkg/snapshot"
)

// Stage names, in run order.
const (
	StageConnectivity     = "Connectivity"
	StageDataReset        = "DataReset"
	StageCreateContext    = "ActorA-CreateContext"
	StageRegister         = "ActorA-Register"
	StageRoomCode         = "RoomCodeExtraction"
	StageJoinAndRegister  = "ActorB-JoinAndRegister"
	StagePersistedActors  = "PersistedActorsCheck"
	StageReady            = "ReadySynchronization"
	StagePersistedSession = "PersistedSessionCheck"
	StageInteraction      = "InteractionSimulation"
	StagePostInteraction  = "PostInteractionVerification"
	StageArtifacts        = "Artifacts"
	StageTeardown         = "Teardown"
)

// pathnameJS reads the current page path; the room page lives at /room/<code>.
const pathnameJS = "() => location.pathname"

// DefaultStages returns the full game lifecycle.
func (e *Engine) DefaultStages() []Stage {
	return []Stage{
		{Name: StageConnectivity, Title: "Verify connectivity", Run: e.connectivity},
		{Name: StageDataReset, Title: "Reset game tables", Run: e.dataReset},
		{Name: StageCreateContext, Title: "Host creates a room", Run: e.createRoom},
		{Name: StageRegister, Title: "Host registers", Run: e.registerHost},
		{Name: StageRoomCode, Title: "Read room code", Run: e.readRoomCode},
		{Name: StageJoinAndRegister, Title: "Guest joins and registers", Run: e.joinAndRegister},
		{Name: StagePersistedActors, Title: "Verify players in DB", Run: e.checkPlayers},
		{Name: StageReady, Title: "Both players ready up", Run: e.readyUp},
		{Name: StagePersistedSession, Title: "Verify game record in DB", Run: e.checkGameStarted},
		{Name: StageInteraction, Title: "Click targets", Run: e.clickTargets},
		{Name: StagePostInteraction, Title: "Verify DB after game ends", Run: e.verifyGameEnded},
		{Name: StageArtifacts, Title: "Final screenshots", Run: e.screenshots},
		{Name: StageTeardown, Title: "Close sessions", Run: e.teardown},
	}
}

func (e *Engine) settle(ctx context.Context, ms int) error {
	return e.Sleep(ctx, config.Duration(ms))
}

// find snapshots label's page and resolves the chain named role.
func (e *Engine) find(ctx context.Context, label, role string) (string, snapshot.RefMap, bool, error) {
	refs, err := e.Sessions.Snapshot(ctx, label)
	if err != nil {
		return "", refs, false, err
	}
	ref, matcher, ok := e.Chains[role].Resolve(refs)
	e.Logger.Debug("resolve",
		zap.String("session", label),
		zap.String("role", role),
		zap.Int("refs", refs.Len()),
		zap.String("ref", ref),
		zap.String("matcher", matcher))
	return ref, refs, ok, nil
}

// mustFind is find where absence is a hard failure.
func (e *Engine) mustFind(ctx context.Context, label, role, what string) (string, error) {
	ref, refs, ok, err := e.find(ctx, label, role)
	if err != nil {
		return "", err
	}
	if !ok {
		e.Logger.Warn("no matcher resolved",
			zap.String("session", label),
			zap.String("role", role),
			zap.Strings("tried", e.Chains[role].Names()))
		return "", missing(what, refs)
	}
	return ref, nil
}

func (e *Engine) count(ctx context.Context, table, where string) (int, error) {
	return datastore.Count(ctx, e.Store, table, where)
}

func (e *Engine) connectivity(ctx context.Context, _ *RunContext) error {
	if body, err := health.Check(ctx, e.Health, e.Config.AppURL); err != nil {
		if body == "" {
			body = err.Error()
		}
		return precondition(fmt.Sprintf("App not reachable (%s)", body))
	}
	e.Out.Info("App is up.")
	if err := datastore.Ping(ctx, e.Store); err != nil {
		return precondition(fmt.Sprintf("Cannot connect to DB (%v)", err))
	}
	e.Out.Info("DB is up.")
	return nil
}

func (e *Engine) dataReset(ctx context.Context, _ *RunContext) error {
	if err := datastore.Reset(ctx, e.Store); err != nil {
		return err
	}
	e.Out.Info("DB cleaned.")
	return nil
}

func (e *Engine) createRoom(ctx context.Context, rc *RunContext) error {
	label := rc.Host.Label
	if err := e.Sessions.Open(ctx, label, e.Config.AppURL); err != nil {
		return err
	}
	if err := e.settle(ctx, e.Config.Waits.NavigationMS); err != nil {
		return err
	}
	ref, err := e.mustFind(ctx, label, "create", "Create Room button")
	if err != nil {
		return err
	}
	if err := e.Sessions.Click(ctx, label, ref); err != nil {
		return err
	}
	return e.settle(ctx, e.Config.Waits.ClickMS)
}

// register fills the name form for actor and submits it. The final click
// is not followed by a settle delay; callers decide how to wait.
func (e *Engine) register(ctx context.Context, actor config.Actor) error {
	nameRef, err := e.mustFind(ctx, actor.Label, "name", "name input for "+actor.Label)
	if err != nil {
		return err
	}
	if err := e.Sessions.Fill(ctx, actor.Label, nameRef, actor.Name); err != nil {
		return err
	}
	if err := e.settle(ctx, e.Config.Waits.FillMS); err != nil {
		return err
	}
	submitRef, err := e.mustFind(ctx, actor.Label, "submit", "submit button for "+actor.Label)
	if err != nil {
		return err
	}
	return e.Sessions.Click(ctx, actor.Label, submitRef)
}

func (e *Engine) registerHost(ctx context.Context, rc *RunContext) error {
	e.Out.Info("%s registers as %s", rc.Host.Label, rc.Host.Name)
	if err := e.register(ctx, rc.Host); err != nil {
		return err
	}
	return e.settle(ctx, e.Config.Waits.ClickMS)
}

// readRoomCode asks the page URL first and falls back to scanning the
// snapshot text.
func (e *Engine) readRoomCode(ctx context.Context, rc *RunContext) error {
	label := rc.Host.Label
	path, err := e.Sessions.Evaluate(ctx, label, pathnameJS)
	if err != nil {
		return err
	}
	if code, ok := extract.RoomCodeFromPath(path); ok {
		rc.RoomCode, rc.RoomCodeSource = code, "url"
	} else {
		text, err := e.Sessions.SnapshotText(ctx, label)
		if err != nil {
			return err
		}
		if code, ok := extract.RoomCode(text); ok {
			rc.RoomCode, rc.RoomCodeSource = code, "snapshot"
		}
	}
	e.Logger.Debug("room code", zap.String("code", rc.RoomCode), zap.String("source", rc.RoomCodeSource))
	if rc.RoomCode == "" {
		e.Out.Info("Room code: none")
		return precondition("Could not find room code")
	}
	e.Out.Info("Room code: %s", rc.RoomCode)
	return nil
}

func (e *Engine) joinAndRegister(ctx context.Context, rc *RunContext) error {
	label := rc.Guest.Label
	e.Out.Info("%s joins room %s", label, rc.RoomCode)
	if err := e.Sessions.Open(ctx, label, e.Config.AppURL); err != nil {
		return err
	}
	if err := e.settle(ctx, e.Config.Waits.NavigationMS); err != nil {
		return err
	}
	codeRef, err := e.mustFind(ctx, label, "code", "code input")
	if err != nil {
		return err
	}
	if err := e.Sessions.Fill(ctx, label, codeRef, rc.RoomCode); err != nil {
		return err
	}
	if err := e.settle(ctx, e.Config.Waits.FillMS); err != nil {
		return err
	}
	joinRef, err := e.mustFind(ctx, label, "join", "Join Room button")
	if err != nil {
		return err
	}
	if err := e.Sessions.Click(ctx, label, joinRef); err != nil {
		return err
	}
	if err := e.settle(ctx, e.Config.Waits.ClickMS); err != nil {
		return err
	}
	e.Out.Info("%s registers as %s", label, rc.Guest.Name)
	return e.register(ctx, rc.Guest)
}

func (e *Engine) checkPlayers(ctx context.Context, _ *RunContext) error {
	n, err := e.Waiter.WaitAtLeast(ctx, e.Store, datastore.CountSQL("players", ""), 2, e.Budgets.Actors)
	if err != nil {
		return err
	}
	e.Ledger.AtLeast("players table rows", 2, n)
	return nil
}

func (e *Engine) readyUp(ctx context.Context, rc *RunContext) error {
	for _, actor := range []config.Actor{rc.Host, rc.Guest} {
		ref, _, ok, err := e.find(ctx, actor.Label, "ready")
		if err != nil {
			return err
		}
		if ok {
			if err := e.Sessions.Click(ctx, actor.Label, ref); err != nil {
				return err
			}
			e.Out.Info("%s readied up", actor.Label)
		} else {
			e.Out.Warn("Could not find ready button for %s", actor.Label)
		}
		if err := e.settle(ctx, e.Config.Waits.ReadyMS); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) checkGameStarted(ctx context.Context, _ *RunContext) error {
	e.Out.Info("Waiting up to %s for countdown + game start...", e.Budgets.Countdown)
	n, err := e.Waiter.WaitAtLeast(ctx, e.Store, datastore.CountSQL("games", ""), 1, e.Budgets.Countdown)
	if err != nil {
		return err
	}
	e.Ledger.AtLeast("games table rows", 1, n)
	// The row is written before the scene reaches the browsers.
	return e.settle(ctx, e.Config.Waits.SceneMS)
}

// ClickScript returns the page script that fires mousedown on up to limit
// targets matching selector and returns how many it hit.
func ClickScript(selector string, limit int) string {
	return fmt.Sprintf("() => { const targets = document.querySelectorAll(%q); let clicked = 0; "+
		"for (const t of targets) { if (clicked >= %d) break; "+
		"t.dispatchEvent(new MouseEvent('mousedown', {bubbles: true})); clicked++; } return clicked; }",
		selector, limit)
}

func (e *Engine) clickTargets(ctx context.Context, rc *RunContext) error {
	in := e.Config.Interaction
	script := ClickScript(in.Selector, in.ClicksPerAttempt)
	for _, actor := range []config.Actor{rc.Host, rc.Guest} {
		for attempt := 1; attempt <= in.Attempts; attempt++ {
			out, err := e.Sessions.Evaluate(ctx, actor.Label, script)
			if err != nil {
				return err
			}
			e.Out.Info("%s click attempt %d: %s", actor.Label, attempt, out)
			if err := e.settle(ctx, e.Config.Waits.IntervalMS); err != nil {
				return err
			}
		}
	}
	return nil
}

// waitUntil polls a count until it reaches minimum or deadline passes.
func (e *Engine) waitUntil(ctx context.Context, table, where string, minimum int, deadline time.Time) (int, error) {
	budget := time.Until(deadline)
	if budget < 0 {
		budget = 0
	}
	return e.Waiter.WaitAtLeast(ctx, e.Store, datastore.CountSQL(table, where), minimum, budget)
}

func (e *Engine) verifyGameEnded(ctx context.Context, _ *RunContext) error {
	e.Out.Info("Waiting up to %s for round to end + DB flush...", e.Budgets.Round)
	// The server ends the game before it writes game_players, and click
	// events arrive in batches, so each count gets the rest of one budget.
	deadline := time.Now().Add(e.Budgets.Round)
	ended, err := e.waitUntil(ctx, "games", "ended_at IS NOT NULL", 1, deadline)
	if err != nil {
		return err
	}
	gamePlayers, err := e.waitUntil(ctx, "game_players", "", 2, deadline)
	if err != nil {
		return err
	}
	clicks, err := e.waitUntil(ctx, "click_events", "", 1, deadline)
	if err != nil {
		return err
	}

	games, err := e.count(ctx, "games", "")
	if err != nil {
		return err
	}
	e.Ledger.AtLeast("games rows", 1, games)
	e.Ledger.AtLeast("games with ended_at", 1, ended)
	e.Ledger.AtLeast("game_players rows", 2, gamePlayers)
	e.Ledger.AtLeast("click_events rows", 1, clicks)

	if clicks > 0 {
		minReaction, err := datastore.Int(ctx, e.Store, "SELECT MIN(reaction_ms) FROM click_events")
		if err != nil {
			return err
		}
		e.Ledger.GreaterThan("min reaction_ms positive", 0, minReaction)
	}
	return nil
}

// ScreenshotPath is where label's final screenshot is written.
func ScreenshotPath(dir, label string) string {
	return filepath.Join(dir, "integration_"+label+"_final.png")
}

func (e *Engine) screenshots(ctx context.Context, rc *RunContext) error {
	for _, actor := range []config.Actor{rc.Host, rc.Guest} {
		path := ScreenshotPath(e.Config.ScreenshotDir, actor.Label)
		if err := e.Sessions.Screenshot(ctx, actor.Label, path); err != nil {
			return err
		}
		e.Out.Info("Saved %s", path)
		// The browser tool may write relative to another directory.
		if a, err := evidence.Attach(actor.Label, path); err == nil {
			e.artifacts = append(e.artifacts, *a)
		} else {
			e.Logger.Debug("screenshot not fingerprinted", zap.String("path", path), zap.Error(err))
		}
	}
	return nil
}

func (e *Engine) teardown(ctx context.Context, _ *RunContext) error {
	cleanup, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := e.Sessions.CloseAll(cleanup); err != nil {
		e.Out.Warn("Session cleanup incomplete: %v", err)
	}
	return nil
}
