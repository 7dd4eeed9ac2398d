package identity

import "strings"

// Normalize converts a wire-format user payload into the engine's
// normalized User. It is a pure function: no side effects, safe to call
// repeatedly, and it never fails — a payload with no companies yields a
// User with empty Companies/Branches/Roles slices rather than nils.
func Normalize(p *UserPayload) *User {
	u := &User{
		Companies: []Company{},
		Branches:  []Branch{},
		Roles:     []Role{},
	}
	if p == nil {
		return u
	}

	u.ID = p.ID
	u.Email = p.Email
	u.FirstName = p.FirstName
	u.LastName = p.LastName
	u.CompanyIDDefault = p.CompanyIDDefault
	u.CurrentBranchID = p.BranchIDDefault

	for _, cp := range p.Companies {
		company := Company{
			ID:        cp.ID,
			Code:      cp.Code,
			Name:      cp.Name,
			Status:    normalizeStatus(cp.Status),
			IsDefault: cp.IsDefault.Bool(),
			Branches:  make([]Branch, 0, len(cp.Branches)),
			Roles:     make([]Role, 0, len(cp.Roles)),
		}

		for _, bp := range cp.Branches {
			branch := Branch{
				ID:        bp.ID,
				Code:      bp.Code,
				Name:      bp.Name,
				Type:      inferBranchType(bp.Code, bp.Type),
				CompanyID: cp.ID,
				Address:   bp.Address,
				Contact:   bp.Contact,
				Settings:  bp.Settings,
			}
			company.Branches = append(company.Branches, branch)
			u.Branches = append(u.Branches, branch)
		}

		for _, rp := range cp.Roles {
			role := Role{
				ID:          rp.ID,
				Code:        rp.Code,
				Name:        rp.Name,
				Description: rp.Description,
				IsSystem:    rp.IsSystem.Bool(),
			}
			company.Roles = append(company.Roles, role)
			u.Roles = append(u.Roles, role)
		}

		u.Companies = append(u.Companies, company)
	}

	return u
}

// inferBranchType derives a branch type from an explicit wire value when
// present, otherwise from the branch code naming convention (HQ/WH/ST
// prefixes or suffixes used by the provisioning tooling).
func inferBranchType(code, explicit string) BranchType {
	switch strings.ToLower(strings.TrimSpace(explicit)) {
	case string(BranchTypeHeadquarters), "hq":
		return BranchTypeHeadquarters
	case string(BranchTypeWarehouse):
		return BranchTypeWarehouse
	case string(BranchTypeStore):
		return BranchTypeStore
	case string(BranchTypeBranch):
		return BranchTypeBranch
	}

	c := strings.ToUpper(strings.TrimSpace(code))
	switch {
	case strings.HasPrefix(c, "HQ") || strings.HasSuffix(c, "-HQ"):
		return BranchTypeHeadquarters
	case strings.HasPrefix(c, "WH") || strings.HasSuffix(c, "-WH"):
		return BranchTypeWarehouse
	case strings.HasPrefix(c, "ST") || strings.HasSuffix(c, "-ST"):
		return BranchTypeStore
	default:
		return BranchTypeBranch
	}
}

func normalizeStatus(s string) Status {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active", "1", "enabled":
		return StatusActive
	default:
		return StatusInactive
	}
}
