// Package types provides the core entity and enum definitions shared across
// every component of adversarypilot: targets, attack techniques, and the
// closed enums (domains, phases, surfaces, access levels, goals, stealth
// priorities) that describe them.
//
// Types in this package are immutable once constructed; nothing here mutates
// a TargetProfile or AttackTechnique in place. Posteriors, plans, and campaign
// state that evolve over time live in their own packages and reference these
// types by id.
//
// # Families
//
// Techniques are grouped into families for correlated-update and diversity
// purposes. The family key is always derived with FamilyKey, never
// recomputed ad hoc by a caller:
//
//	key := types.FamilyKey(technique)
package types
