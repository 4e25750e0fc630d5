package types

// Domain is the broad attack surface family a technique belongs to.
type Domain string

const (
	DomainAML   Domain = "aml"
	DomainLLM   Domain = "llm"
	DomainAgent Domain = "agent"
)

// String returns the string representation of the domain.
func (d Domain) String() string { return string(d) }

// IsValid returns true if d is a recognized domain.
func (d Domain) IsValid() bool {
	switch d {
	case DomainAML, DomainLLM, DomainAgent:
		return true
	default:
		return false
	}
}

// Phase is a kill-chain stage. Phases form a strict total order:
// recon < probe < exploit < persistence < evaluation.
type Phase string

const (
	PhaseRecon       Phase = "recon"
	PhaseProbe       Phase = "probe"
	PhaseExploit     Phase = "exploit"
	PhasePersistence Phase = "persistence"
	PhaseEvaluation  Phase = "evaluation"
)

var phaseRank = map[Phase]int{
	PhaseRecon:       0,
	PhaseProbe:       1,
	PhaseExploit:     2,
	PhasePersistence: 3,
	PhaseEvaluation:  4,
}

// String returns the string representation of the phase.
func (p Phase) String() string { return string(p) }

// IsValid returns true if p is a recognized phase.
func (p Phase) IsValid() bool {
	_, ok := phaseRank[p]
	return ok
}

// Rank returns the phase's position in the strict kill-chain order, or -1 if
// the phase is not recognized.
func (p Phase) Rank() int {
	if r, ok := phaseRank[p]; ok {
		return r
	}
	return -1
}

// Before returns true if p occurs strictly before other in the kill chain.
func (p Phase) Before(other Phase) bool { return p.Rank() < other.Rank() }

// Surface is the system layer a technique targets.
type Surface string

const (
	SurfaceModel      Surface = "model"
	SurfaceData       Surface = "data"
	SurfaceRetrieval  Surface = "retrieval"
	SurfaceTool       Surface = "tool"
	SurfaceAction     Surface = "action"
	SurfaceGuardrail  Surface = "guardrail"
)

// AllSurfaces lists every recognized surface, in a fixed order used
// wherever a per-surface iteration must be stable (the weakest-layer
// analyzer relies on this order; the campaign's phase transition uses its
// length).
var AllSurfaces = []Surface{
	SurfaceModel, SurfaceData, SurfaceRetrieval, SurfaceTool, SurfaceAction, SurfaceGuardrail,
}

// String returns the string representation of the surface.
func (s Surface) String() string { return string(s) }

// IsValid returns true if s is a recognized surface.
func (s Surface) IsValid() bool {
	switch s {
	case SurfaceModel, SurfaceData, SurfaceRetrieval, SurfaceTool, SurfaceAction, SurfaceGuardrail:
		return true
	default:
		return false
	}
}

// AccessLevel is the degree of visibility an attacker has into the target,
// totally ordered black < gray < white.
type AccessLevel string

const (
	AccessBlackBox AccessLevel = "black_box"
	AccessGrayBox  AccessLevel = "gray_box"
	AccessWhiteBox AccessLevel = "white_box"
)

var accessRank = map[AccessLevel]int{
	AccessBlackBox: 0,
	AccessGrayBox:  1,
	AccessWhiteBox: 2,
}

// String returns the string representation of the access level.
func (a AccessLevel) String() string { return string(a) }

// IsValid returns true if a is a recognized access level.
func (a AccessLevel) IsValid() bool {
	_, ok := accessRank[a]
	return ok
}

// Rank returns a's position in the black < gray < white order, or -1 if
// unrecognized.
func (a AccessLevel) Rank() int {
	if r, ok := accessRank[a]; ok {
		return r
	}
	return -1
}

// Satisfies returns true if a meets or exceeds the required access level.
func (a AccessLevel) Satisfies(required AccessLevel) bool { return a.Rank() >= required.Rank() }

// Goal is an evaluation objective a technique may support.
type Goal string

const (
	GoalEvasion     Goal = "evasion"
	GoalJailbreak   Goal = "jailbreak"
	GoalExfilSim    Goal = "exfil_sim"
	GoalExtraction  Goal = "extraction"
	GoalToolMisuse  Goal = "tool_misuse"
	GoalPoisoning   Goal = "poisoning"
	GoalDOS         Goal = "dos"
)

// String returns the string representation of the goal.
func (g Goal) String() string { return string(g) }

// IsValid returns true if g is a recognized goal.
func (g Goal) IsValid() bool {
	switch g {
	case GoalEvasion, GoalJailbreak, GoalExfilSim, GoalExtraction, GoalToolMisuse, GoalPoisoning, GoalDOS:
		return true
	default:
		return false
	}
}

// TargetType is the category of AI system under evaluation.
type TargetType string

const (
	TargetClassifier  TargetType = "classifier"
	TargetChatbot     TargetType = "chatbot"
	TargetRAG         TargetType = "rag"
	TargetAgent       TargetType = "agent"
	TargetModeration  TargetType = "moderation"
	TargetEmbedding   TargetType = "embedding"
	TargetMultiAgent  TargetType = "multi_agent"
	TargetMCPClient   TargetType = "mcp_client"
)

// String returns the string representation of the target type.
func (t TargetType) String() string { return string(t) }

// IsValid returns true if t is a recognized target type.
func (t TargetType) IsValid() bool {
	switch t {
	case TargetClassifier, TargetChatbot, TargetRAG, TargetAgent, TargetModeration,
		TargetEmbedding, TargetMultiAgent, TargetMCPClient:
		return true
	default:
		return false
	}
}

// StealthPriority is how much an operator wants to avoid detection.
type StealthPriority string

const (
	StealthOvert    StealthPriority = "overt"
	StealthModerate StealthPriority = "moderate"
	StealthCovert   StealthPriority = "covert"
)

// String returns the string representation of the stealth priority.
func (s StealthPriority) String() string { return string(s) }

// IsValid returns true if s is a recognized stealth priority.
func (s StealthPriority) IsValid() bool {
	switch s {
	case StealthOvert, StealthModerate, StealthCovert:
		return true
	default:
		return false
	}
}

// DefenseFlag names a known defensive control that may be present on a
// target, used to populate TargetProfile.DefenseProfile.
type DefenseFlag string

const (
	DefenseModeration        DefenseFlag = "moderation"
	DefenseInputFilter       DefenseFlag = "input_filter"
	DefenseOutputFilter      DefenseFlag = "output_filter"
	DefenseInjectionDetector DefenseFlag = "injection_detection"
	DefenseSchemaValidation  DefenseFlag = "schema_validation"
	DefenseRateLimit         DefenseFlag = "rate_limit"
)

// String returns the string representation of the defense flag.
func (d DefenseFlag) String() string { return string(d) }

// JudgeType identifies what kind of evaluator produced an EvaluationResult.
type JudgeType string

const (
	JudgeHuman      JudgeType = "human"
	JudgeLLM        JudgeType = "llm_judge"
	JudgeHeuristic  JudgeType = "heuristic"
	JudgeClassifier JudgeType = "classifier"
)

// String returns the string representation of the judge type.
func (j JudgeType) String() string { return string(j) }

// IsValid returns true if j is a recognized judge type.
func (j JudgeType) IsValid() bool {
	switch j {
	case JudgeHuman, JudgeLLM, JudgeHeuristic, JudgeClassifier:
		return true
	default:
		return false
	}
}

// CampaignPhase is the adaptive planner's two-phase operating mode.
type CampaignPhase string

const (
	CampaignPhaseProbe   CampaignPhase = "probe"
	CampaignPhaseExploit CampaignPhase = "exploit"
)

// String returns the string representation of the campaign phase.
func (c CampaignPhase) String() string { return string(c) }

// IsValid returns true if c is a recognized campaign phase.
func (c CampaignPhase) IsValid() bool {
	switch c {
	case CampaignPhaseProbe, CampaignPhaseExploit:
		return true
	default:
		return false
	}
}

// CampaignStatus is the campaign manager's lifecycle state.
type CampaignStatus string

const (
	CampaignStatusPlanning  CampaignStatus = "planning"
	CampaignStatusActive    CampaignStatus = "active"
	CampaignStatusPaused    CampaignStatus = "paused"
	CampaignStatusCompleted CampaignStatus = "completed"
	CampaignStatusAborted   CampaignStatus = "aborted"
)

// String returns the string representation of the campaign status.
func (c CampaignStatus) String() string { return string(c) }

// IsValid returns true if c is a recognized campaign status.
func (c CampaignStatus) IsValid() bool {
	switch c {
	case CampaignStatusPlanning, CampaignStatusActive, CampaignStatusPaused,
		CampaignStatusCompleted, CampaignStatusAborted:
		return true
	default:
		return false
	}
}
