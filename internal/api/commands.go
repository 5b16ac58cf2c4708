package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/airport-simulator/internal/logging"
	"github.com/signalsfoundry/airport-simulator/internal/sim/runtime"
	"github.com/signalsfoundry/airport-simulator/timectrl"
)

// CommandResult is the reply to a player command. Over gRPC, rejected
// commands carry OK=false and a reason rather than a status error.
type CommandResult struct {
	OK         bool   `json:"ok"`
	Reason     string `json:"reason,omitempty"`
	Match      string `json:"match,omitempty"`
	Paused     *bool  `json:"paused,omitempty"`
	Generation uint64 `json:"generation,omitempty"`
	Token      string `json:"token,omitempty"`
	HighScore  *int   `json:"highScore,omitempty"`
}

func rejected(err error) CommandResult {
	return CommandResult{OK: false, Reason: err.Error()}
}

// commandError reports whether err is a game-level rejection that should
// travel as an unsuccessful result rather than a transport failure.
func commandError(err error) bool {
	return isRejected(err) || isNotFound(err) || errors.Is(err, runtime.ErrStaleSession)
}

// controller runs commands against the runtime at the clock's current time.
// Both transports share it.
type controller struct {
	rt     *runtime.Runtime
	clock  timectrl.SimClock
	tokens *TokenIssuer
	log    logging.Logger
}

// authorize resolves the generation a command targets. With tokens enabled
// it comes from the bearer token in header; otherwise explicit is used.
func (c *controller) authorize(header string, explicit uint64) (uint64, error) {
	if c.tokens == nil {
		return explicit, nil
	}
	raw, ok := bearerToken(header)
	if !ok {
		return 0, fmt.Errorf("%w: missing bearer token", ErrInvalidToken)
	}
	return c.tokens.Parse(raw)
}

// withToken attaches a session token for the result's generation.
func (c *controller) withToken(res CommandResult) (CommandResult, error) {
	if c.tokens == nil || res.Generation == 0 {
		return res, nil
	}
	tok, err := c.tokens.Issue(res.Generation)
	if err != nil {
		return CommandResult{}, err
	}
	res.Token = tok
	return res, nil
}

func (c *controller) assign(ctx context.Context, gen uint64, flightID, gateID string) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.assign", "flight", flightID, attribute.String("gate_id", gateID))
	defer span.End()

	if flightID == "" || gateID == "" {
		return CommandResult{}, fmt.Errorf("%w: flightId and gateId are required", ErrInvalidArgument)
	}
	m, err := c.rt.AssignAt(ctx, gen, c.clock.Now(), flightID, gateID)
	if err != nil {
		span.RecordError(err)
		return CommandResult{}, err
	}
	return CommandResult{OK: true, Match: string(m)}, nil
}

func (c *controller) purchase(ctx context.Context, gen uint64, upgradeID string) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.purchase_upgrade", "upgrade", upgradeID)
	defer span.End()

	if upgradeID == "" {
		return CommandResult{}, fmt.Errorf("%w: upgradeId is required", ErrInvalidArgument)
	}
	if err := c.rt.PurchaseUpgradeAt(ctx, gen, c.clock.Now(), upgradeID); err != nil {
		span.RecordError(err)
		return CommandResult{}, err
	}
	return CommandResult{OK: true}, nil
}

func (c *controller) togglePause(ctx context.Context, gen uint64) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.toggle_pause", "", "")
	defer span.End()

	paused, err := c.rt.TogglePauseAt(ctx, gen, c.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{OK: true, Paused: &paused}, nil
}

func (c *controller) startNewGame(ctx context.Context) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.start_new_game", "", "")
	defer span.End()

	gen, err := c.rt.StartNewGame(ctx, c.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	return c.withToken(CommandResult{OK: true, Generation: gen})
}

func (c *controller) reset(ctx context.Context) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.reset", "", "")
	defer span.End()
	return c.withToken(CommandResult{OK: true, Generation: c.rt.Reset(ctx, c.clock.Now())})
}

func (c *controller) save(ctx context.Context) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.save_game", "", "")
	defer span.End()

	if _, err := c.rt.SaveGame(ctx, c.clock.Now()); err != nil {
		span.RecordError(err)
		return CommandResult{}, err
	}
	return CommandResult{OK: true}, nil
}

func (c *controller) resume(ctx context.Context) (CommandResult, error) {
	ctx, span := StartChildSpan(ctx, "airport.resume_game", "", "")
	defer span.End()

	gen, err := c.rt.ResumeSavedGame(ctx, c.clock.Now())
	if err != nil {
		return CommandResult{}, err
	}
	return c.withToken(CommandResult{OK: true, Generation: gen})
}

func (c *controller) highScore(ctx context.Context) (CommandResult, error) {
	hs, err := c.rt.HighScore(ctx)
	if err != nil {
		return CommandResult{}, err
	}
	return CommandResult{OK: true, HighScore: &hs}, nil
}

func (c *controller) deleteSave(ctx context.Context) (CommandResult, error) {
	if err := c.rt.DeleteSave(ctx); err != nil {
		return CommandResult{}, err
	}
	return CommandResult{OK: true}, nil
}

// toStruct converts any JSON-encodable value into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// stringField reads a string field from a request Struct.
func stringField(in *structpb.Struct, key string) string {
	if in == nil {
		return ""
	}
	if v, ok := in.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

// generationField reads the optional numeric "generation" field.
func generationField(in *structpb.Struct) (uint64, error) {
	if in == nil {
		return 0, nil
	}
	v, ok := in.GetFields()["generation"]
	if !ok {
		return 0, nil
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum || n.NumberValue < 0 {
		return 0, fmt.Errorf("%w: generation must be a non-negative number", ErrInvalidArgument)
	}
	return uint64(n.NumberValue), nil
}
