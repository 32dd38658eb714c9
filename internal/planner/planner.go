// internal/planner/planner.go
package planner

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/CodeMonkeyCybersecurity/doppel/internal/config"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/logger"
	"github.com/CodeMonkeyCybersecurity/doppel/internal/telemetry"
	"github.com/CodeMonkeyCybersecurity/doppel/pkg/scanners/idor"
)

// ErrNoVictimID is returned when a plan is requested without a victim identity
var ErrNoVictimID = errors.New("victim id is required")

// Probe is one request an operator should replay as the attacker
type Probe struct {
	Method    idor.Method            `json:"method"`
	Endpoint  string                 `json:"endpoint"`
	Param     string                 `json:"param"`
	ParamType idor.ParamType         `json:"param_type"`
	RiskScore int                    `json:"risk_score"`
	Location  idor.ParameterLocation `json:"location"`
	Value     string                 `json:"value"`
	URL       string                 `json:"url"`
	Query     map[string]string      `json:"query,omitempty"`
	Body      any                    `json:"body,omitempty"`
}

// EndpointPlan holds the probes for one endpoint, in parameter priority order
type EndpointPlan struct {
	Endpoint   idor.Endpoint            `json:"endpoint"`
	Parameters []idor.DetectedParameter `json:"parameters"`
	Summary    string                   `json:"summary"`
	Probes     []Probe                  `json:"probes"`
}

type Plan struct {
	ID          string         `json:"id"`
	VictimID    string         `json:"victim_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Endpoints   []EndpointPlan `json:"endpoints"`
	TotalProbes int            `json:"total_probes"`
}

// Planner turns endpoint descriptors into BOLA probe plans. It sends no
// requests itself.
type Planner struct {
	cfg       config.DetectionConfig
	logger    *logger.Logger
	telemetry telemetry.Telemetry
}

func New(cfg config.DetectionConfig, log *logger.Logger, tel telemetry.Telemetry) *Planner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if tel == nil {
		tel = telemetry.NewNoop()
	}
	return &Planner{
		cfg:       cfg,
		logger:    log.WithComponent("planner"),
		telemetry: tel,
	}
}

// Plan analyzes every endpoint concurrently and expands each high-risk
// parameter into one probe per candidate value. Endpoint order is kept.
func (p *Planner) Plan(ctx context.Context, endpoints []idor.Endpoint, victimID string) (plan *Plan, err error) {
	if victimID == "" {
		return nil, ErrNoVictimID
	}

	start := time.Now()
	planID := uuid.New().String()
	log := p.logger.WithPlanID(planID)

	ctx, span := log.StartOperation(ctx, "planner.Plan", "endpoints", len(endpoints))
	defer func() {
		log.FinishOperation(ctx, span, "planner.Plan", start, err)
		p.telemetry.RecordPlan(time.Since(start).Seconds(), err == nil)
	}()

	results := make([]EndpointPlan, len(endpoints))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Workers)

	for i, ep := range endpoints {
		i, ep := i, ep
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = p.planEndpoint(ep, victimID)
			log.WithEndpoint(string(ep.Method), ep.Path).Debugw("Endpoint planned",
				"high_risk_params", len(results[i].Parameters),
				"probes", len(results[i].Probes),
			)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("planning aborted: %w", err)
	}

	plan = &Plan{
		ID:        planID,
		VictimID:  victimID,
		CreatedAt: start.UTC(),
		Endpoints: results,
	}
	for _, ep := range results {
		plan.TotalProbes += len(ep.Probes)
	}
	p.telemetry.RecordProbes(plan.TotalProbes)

	log.Infow("Probe plan ready",
		"endpoints", len(results),
		"total_probes", plan.TotalProbes,
	)
	return plan, nil
}

func (p *Planner) planEndpoint(ep idor.Endpoint, victimID string) EndpointPlan {
	analyzed := idor.AnalyzeEndpoint(ep)
	for _, param := range analyzed {
		p.telemetry.RecordClassified(param.Type)
	}

	highRisk := idor.FilterHighRisk(analyzed, p.cfg.MinRiskScore)
	candidates := p.candidates(victimID)

	result := EndpointPlan{
		Endpoint:   ep,
		Parameters: highRisk,
		Summary:    idor.ParameterSummary(ep, p.cfg.SummaryLimit),
		Probes:     make([]Probe, 0, len(highRisk)*len(candidates)),
	}
	for _, param := range highRisk {
		for _, value := range candidates {
			result.Probes = append(result.Probes, buildProbe(ep, param, value))
		}
	}
	return result
}

func (p *Planner) candidates(victimID string) []string {
	if !p.cfg.EnableMutation {
		return []string{victimID}
	}
	return idor.MutateParam(victimID)
}

func buildProbe(ep idor.Endpoint, param idor.DetectedParameter, value string) Probe {
	probe := Probe{
		Method:    ep.Method,
		Endpoint:  ep.Path,
		Param:     param.Name,
		ParamType: param.Type,
		RiskScore: param.RiskScore,
		Location:  param.Context.Location,
		Value:     value,
		URL:       ep.Path,
	}

	switch param.Context.Location {
	case idor.LocationPath:
		probe.URL = strings.ReplaceAll(ep.Path, "{"+param.Name+"}", url.PathEscape(value))
	case idor.LocationQuery:
		probe.Query = map[string]string{param.Name: value}
	case idor.LocationBody:
		probe.Body = substituteBody(ep.Body, idor.BodyFieldPath(param.Name), value)
	}

	return probe
}

// substituteBody returns a copy of the body template with value written at
// fieldPath. Objects missing along the path are created, so the value is
// always present. Without a template the body holds only the field.
func substituteBody(template map[string]any, fieldPath, value string) any {
	keys := strings.Split(fieldPath, ".")
	if template == nil {
		return nestedField(keys, value)
	}
	body, _ := idor.SubstituteParams(template, nil).(map[string]any)
	return setField(body, keys, value)
}

// setField writes value at keys, cloning every object on the path so no
// container shared with the template is modified.
func setField(root map[string]any, keys []string, value string) map[string]any {
	out := maps.Clone(root)
	if out == nil {
		out = make(map[string]any)
	}
	node := out
	for _, key := range keys[:len(keys)-1] {
		child, ok := node[key].(map[string]any)
		if ok {
			child = maps.Clone(child)
		} else {
			child = make(map[string]any)
		}
		node[key] = child
		node = child
	}
	node[keys[len(keys)-1]] = value
	return out
}

func nestedField(keys []string, value string) map[string]any {
	var node any = value
	for i := len(keys) - 1; i >= 0; i-- {
		node = map[string]any{keys[i]: node}
	}
	return node.(map[string]any)
}
