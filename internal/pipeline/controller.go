package pipeline

import (
	"context"
	"fmt"
	"log"
	"sync"

	"strategist/internal/agent"
)

// Node is one state of the workflow machine. The enumeration is closed and
// the transition function below is total over it.
type Node int

const (
	NodeClarify Node = iota
	NodePlan
	NodeArchitect
	NodeFeedback
	NodeConsolidate
	NodeCheckLimit
	NodeDone
)

func (n Node) String() string {
	switch n {
	case NodeClarify:
		return "clarify_requirements"
	case NodePlan:
		return "create_plan"
	case NodeArchitect:
		return "design_architecture"
	case NodeFeedback:
		return "gather_feedback"
	case NodeConsolidate:
		return "consolidate_feedback"
	case NodeCheckLimit:
		return "check_iteration_limit"
	case NodeDone:
		return "done"
	}
	return "unknown"
}

// Controller owns the node sequencing for one run. Agents are injected at
// construction; Progress (optional) is invoked before each node executes.
type Controller struct {
	Clarifier *agent.Clarifier
	Planner   *agent.Planner
	Architect *agent.Architect
	Personas  []*agent.Persona
	Progress  func(node Node, iteration int)
}

// transition is the total routing function. After ConsolidateFeedback the
// needs-clarification decision selects between the iteration-limit check
// and termination; the limit check terminates when the cap is reached
// regardless of the decision.
func transition(n Node, s *State) Node {
	switch n {
	case NodeClarify:
		return NodePlan
	case NodePlan:
		return NodeArchitect
	case NodeArchitect:
		return NodeFeedback
	case NodeFeedback:
		return NodeConsolidate
	case NodeConsolidate:
		if s.NeedsClarification {
			return NodeCheckLimit
		}
		return NodeDone
	case NodeCheckLimit:
		if s.IterationCount >= s.MaxIterations {
			log.Printf("controller: reached maximum number of iterations (%d)", s.MaxIterations)
			return NodeDone
		}
		return NodeClarify
	}
	return NodeDone
}

// Run drives the machine from ClarifyRequirements to Done, mutating the
// state node by node. Abandonment via ctx stops the run before the next
// node; an in-flight model call is not interrupted beyond what its own
// client timeout enforces.
func (c *Controller) Run(ctx context.Context, s *State) error {
	node := NodeClarify
	for node != NodeDone {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Progress != nil {
			c.Progress(node, s.IterationCount)
		}
		s.Apply(c.runNode(ctx, node, s))
		node = transition(node, s)
	}
	return nil
}

// runNode executes one node and converts any panic into an error-shaped
// patch at the node boundary, so the workflow itself never halts on a
// single stage's failure.
func (c *Controller) runNode(ctx context.Context, node Node, s *State) (patch Patch) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("controller: %s panicked: %v", node, r)
			patch = Patch{NodeError: fmt.Sprint(r), NodeErrorSource: node.String()}
		}
	}()

	switch node {
	case NodeClarify:
		log.Printf("controller: clarifying requirements (iteration %d/%d)", s.IterationCount+1, s.MaxIterations)
		return c.clarifyNode(ctx, s)
	case NodePlan:
		log.Printf("controller: creating project plan")
		return c.planNode(ctx, s)
	case NodeArchitect:
		log.Printf("controller: designing technical architecture")
		return c.architectNode(ctx, s)
	case NodeFeedback:
		log.Printf("controller: gathering client feedback")
		return c.feedbackNode(ctx, s)
	case NodeConsolidate:
		log.Printf("controller: consolidating feedback")
		return c.consolidateNode(s)
	case NodeCheckLimit:
		// Pure routing; transition reads the state directly.
		return Patch{}
	}
	return Patch{}
}

func (c *Controller) clarifyNode(ctx context.Context, s *State) Patch {
	clarified := c.Clarifier.Clarify(ctx, s.UserInput, s.Context)
	return Patch{ClarifiedRequirements: strPtr(clarified)}
}

func (c *Controller) planNode(ctx context.Context, s *State) Patch {
	plan, err := c.Planner.Plan(ctx, s.ClarifiedRequirements, s.Context)
	if err != nil {
		log.Printf("controller: create_plan failed: %v", err)
		return Patch{NodeError: err.Error(), NodeErrorSource: NodePlan.String()}
	}
	return Patch{ProjectPlan: plan}
}

func (c *Controller) architectNode(ctx context.Context, s *State) Patch {
	arch, err := c.Architect.DesignArchitecture(ctx, s.ProjectPlan, s.Context)
	if err != nil {
		log.Printf("controller: design_architecture failed: %v", err)
		return Patch{
			TechnicalArchitecture: map[string]any{"error": err.Error()},
			NodeError:             err.Error(),
			NodeErrorSource:       NodeArchitect.String(),
		}
	}
	return Patch{TechnicalArchitecture: arch}
}

// feedbackNode fans out across all personas against the same architecture
// snapshot. Persona calls are independent and run concurrently; each writes
// its own key of the result map. Failure isolation is structural: every
// persona agent already degrades to a fallback Feedback.
func (c *Controller) feedbackNode(ctx context.Context, s *State) Patch {
	merged := agent.Context{}
	for k, v := range s.Context {
		merged[k] = v
	}
	merged["project_overview"] = s.ClarifiedRequirements
	merged["project_plan"] = s.ProjectPlan

	feedbacks := make(map[string]agent.Feedback, len(c.Personas))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, p := range c.Personas {
		wg.Add(1)
		go func(p *agent.Persona) {
			defer wg.Done()
			fb, err := p.ProvideFeedback(ctx, s.TechnicalArchitecture, merged)
			if err != nil {
				log.Printf("controller: feedback from %s failed: %v", p.Identity().Type, err)
				return
			}
			mu.Lock()
			feedbacks[string(p.Identity().Type)] = fb
			mu.Unlock()
		}(p)
	}
	wg.Wait()

	if len(feedbacks) == 0 {
		return Patch{
			ClientFeedbacks: feedbacks,
			FeedbackError:   strPtr("no persona produced feedback"),
		}
	}
	return Patch{ClientFeedbacks: feedbacks, FeedbackError: strPtr("")}
}

// consolidateNode runs the aggregation and bumps the iteration counter once
// per completed pass; the error path leaves the counter untouched.
func (c *Controller) consolidateNode(s *State) Patch {
	cons := Consolidate(s.ClientFeedbacks, s.FeedbackError)
	if cons.Error != "" {
		log.Printf("controller: no valid feedback to consolidate")
		return Patch{
			ConsolidatedFeedback: &cons,
			NeedsClarification:   boolPtr(false),
		}
	}
	log.Printf("controller: feedback consolidated, needs clarification: %v", cons.NeedsClarification)
	return Patch{
		ConsolidatedFeedback: &cons,
		NeedsClarification:   boolPtr(cons.NeedsClarification),
		IterationCount:       intPtr(s.IterationCount + 1),
	}
}
