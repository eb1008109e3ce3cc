// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAgent                       // Agent or admin token required
	SecurityAdmin                       // Admin token required
)

// RouteSecurityConfig maps HTTP route names to their required security level
var RouteSecurityConfig = map[string]SecurityLevel{
	"Health":          SecurityPublic,
	"DownloadReceipt": SecurityPublic,

	// Groups
	"CreateGroup":   SecurityAdmin,
	"GetGroup":      SecurityAgent,
	"ActivateGroup": SecurityAdmin,
	"CancelGroup":   SecurityAdmin,
	"AddMember":     SecurityAdmin,

	// Collections
	"Reconcile":         SecurityAgent,
	"RecordCollection":  SecurityAgent,
	"ApproveCollection": SecurityAdmin,
	"RejectCollection":  SecurityAdmin,
	"IssueReceipt":      SecurityAgent,

	// Auctions
	"OpenAuction":    SecurityAdmin,
	"PlaceBid":       SecurityAgent,
	"ResolveAuction": SecurityAdmin,
	"CancelAuction":  SecurityAdmin,
	"ExtendAuction":  SecurityAdmin,

	// Risk
	"ScoreMember":    SecurityAgent,
	"EvaluateMember": SecurityAdmin,
	"ResolveFlag":    SecurityAdmin,
	"FlagAgent":      SecurityAdmin,
	"ListFlags":      SecurityAgent,

	// Rollups
	"Aggregate":    SecurityAdmin,
	"ExportLedger": SecurityAdmin,

	// Loans
	"LoanEligibility": SecurityAgent,
	"RequestLoan":     SecurityAgent,
	"DecideLoan":      SecurityAdmin,
	"RecordRepayment": SecurityAgent,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := RouteSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown routes
	return SecurityAdmin
}
