// Package cmdutil provides shared flags for bomsync commands.
package cmdutil

import (
	"github.com/spf13/cobra"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/policy"
	"github.com/agentstation/bomsync/pkg/upload"
)

// PolicyFlags selects the non-interactive decision policies.
type PolicyFlags struct {
	OnConflict  string
	OnRateLimit string
}

// AddPolicyFlags adds the policy flags to a command.
func AddPolicyFlags(cmd *cobra.Command) *PolicyFlags {
	flags := &PolicyFlags{}

	cmd.Flags().StringVar(&flags.OnConflict, "on-conflict", policy.Skip.String(),
		"Quantity conflict with the target BOM: skip, use_delta, use_full")
	cmd.Flags().StringVar(&flags.OnRateLimit, "on-rate-limit", policy.Abort.String(),
		"Supplier rate limit: abort, continue")

	return flags
}

// Policies builds the policies selected by the flags.
func (f *PolicyFlags) Policies() (policy.Policies, error) {
	q, ok := policy.ParseQuantityDecision(f.OnConflict)
	if !ok {
		return policy.Policies{}, &errors.ValidationError{
			Field:   "on-conflict",
			Value:   f.OnConflict,
			Message: "must be one of: skip, use_delta, use_full",
		}
	}
	r, ok := policy.ParseRateLimitDecision(f.OnRateLimit)
	if !ok {
		return policy.Policies{}, &errors.ValidationError{
			Field:   "on-rate-limit",
			Value:   f.OnRateLimit,
			Message: "must be one of: abort, continue",
		}
	}
	return policy.Policies{
		Quantity:  policy.Always(q),
		RateLimit: policy.AlwaysOnRateLimit(r),
	}.WithDefaults(), nil
}

// TargetFlags override the target BOM named in the workspace.
type TargetFlags struct {
	BomID      string
	Name       string
	PartNumber string
}

// AddTargetFlags adds the target flags to a command.
func AddTargetFlags(cmd *cobra.Command) *TargetFlags {
	flags := &TargetFlags{}

	cmd.Flags().StringVar(&flags.BomID, "bom-id", "", "Target BOM id")
	cmd.Flags().StringVar(&flags.Name, "bom-name", "", "Target BOM name")
	cmd.Flags().StringVar(&flags.PartNumber, "bom-part-number", "", "Target BOM part number")

	return flags
}

// Apply returns t with every set flag replacing its field. Setting any flag
// discards the workspace's lookup fields so the flags alone select the BOM.
func (f *TargetFlags) Apply(t upload.Target) upload.Target {
	if f.BomID == "" && f.Name == "" && f.PartNumber == "" {
		return t
	}
	return upload.Target{
		BomID:           f.BomID,
		Name:            f.Name,
		PartNumber:      f.PartNumber,
		CreateIfMissing: t.CreateIfMissing,
	}
}
