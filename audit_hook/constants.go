package audithook

// Action constants for audit events.
const (
	// Construction actions
	ActionPhaseAdded         = "phase.added"
	ActionPhaseStatusChanged = "phase.status_changed"
	ActionResourceAllocated  = "resource.allocated"
	ActionResourceUsed       = "resource.used"

	// Investment actions
	ActionInvested  = "investment.invested"
	ActionWithdrawn = "investment.withdrawn"

	// Governance actions
	ActionProposalCreated = "proposal.created"
	ActionVoteCast        = "proposal.vote_cast"
	ActionProposalClosed  = "proposal.closed"

	// Energy actions
	ActionEnergyCaptured    = "energy.captured"
	ActionEnergyDistributed = "energy.distributed"
	ActionEnergyUsed        = "energy.used"

	// Rejections
	ActionOperationRejected = "operation.rejected"
)

// Resource constants for audit events.
const (
	ResourcePhase      = "phase"
	ResourceMaterial   = "resource"
	ResourceInvestment = "investment"
	ResourceProposal   = "proposal"
	ResourceEnergy     = "energy"
	ResourceSector     = "sector"
	ResourceOperation  = "operation"
)

// Category constants for audit events.
const (
	CategoryConstruction = "construction"
	CategoryCapital      = "capital"
	CategoryGovernance   = "governance"
	CategoryEnergy       = "energy"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
