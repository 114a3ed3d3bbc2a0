package auth

import (
	"context"
	"strings"
)

// RBACConfig configures the path RBAC authorizer.
type RBACConfig struct {
	// Roles defines role configurations.
	Roles map[string]RoleConfig `yaml:"roles"`

	// DefaultRole is assigned to identities without explicit roles.
	DefaultRole string `yaml:"default_role"`
}

// RoleConfig defines the subtrees a role may act on.
type RoleConfig struct {
	// Inherits lists roles this role inherits from.
	Inherits []string `yaml:"inherits"`

	// AllowedPaths are subtree roots this role can access. "/" grants everything.
	AllowedPaths []string `yaml:"allowed_paths"`

	// DeniedPaths are subtree roots this role cannot access. Deny wins.
	DeniedPaths []string `yaml:"denied_paths"`

	// AllowedActions lists actions this role can perform. Empty or "*" allows all.
	AllowedActions []string `yaml:"allowed_actions"`
}

// PathRBACAuthorizer grants access by role and node subtree.
type PathRBACAuthorizer struct {
	config RBACConfig
}

// NewPathRBACAuthorizer creates a new path RBAC authorizer.
func NewPathRBACAuthorizer(config RBACConfig) *PathRBACAuthorizer {
	return &PathRBACAuthorizer{config: config}
}

// Name returns "path_rbac".
func (a *PathRBACAuthorizer) Name() string {
	return "path_rbac"
}

// Authorize permits req when some role of the subject allows both the
// action and the path, and no role denies the path.
func (a *PathRBACAuthorizer) Authorize(_ context.Context, req *AuthzRequest) error {
	if req.Subject == nil {
		return Deny(req, "no identity provided")
	}

	roles := a.collectRoles(req.Subject)
	for _, name := range roles {
		if role, ok := a.config.Roles[name]; ok && underAny(role.DeniedPaths, req.Path) {
			return Deny(req, "path denied for role "+name)
		}
	}
	for _, name := range roles {
		role, ok := a.config.Roles[name]
		if ok && actionAllowed(role.AllowedActions, req.Action) && underAny(role.AllowedPaths, req.Path) {
			return nil
		}
	}
	return Deny(req, "no role permits this action")
}

func (a *PathRBACAuthorizer) collectRoles(subject *Identity) []string {
	seen := make(map[string]bool)
	result := make([]string, 0)

	rolesToProcess := append([]string{}, subject.Roles...)
	if len(rolesToProcess) == 0 && a.config.DefaultRole != "" {
		rolesToProcess = append(rolesToProcess, a.config.DefaultRole)
	}

	for len(rolesToProcess) > 0 {
		current := rolesToProcess[0]
		rolesToProcess = rolesToProcess[1:]

		if seen[current] {
			continue
		}
		seen[current] = true
		result = append(result, current)

		if role, ok := a.config.Roles[current]; ok {
			for _, inherited := range role.Inherits {
				if !seen[inherited] {
					rolesToProcess = append(rolesToProcess, inherited)
				}
			}
		}
	}

	return result
}

func actionAllowed(actions []string, action string) bool {
	if len(actions) == 0 {
		return true
	}
	for _, a := range actions {
		if a == "*" || a == action {
			return true
		}
	}
	return false
}

func underAny(roots []string, path string) bool {
	for _, root := range roots {
		if IsUnder(root, path) {
			return true
		}
	}
	return false
}

// IsUnder reports whether path equals root or lies in root's subtree.
func IsUnder(root, path string) bool {
	if root == "/" || root == "*" {
		return true
	}
	root = strings.TrimSuffix(root, "/")
	return path == root || strings.HasPrefix(path, root+"/")
}

// Ensure PathRBACAuthorizer implements Authorizer
var _ Authorizer = (*PathRBACAuthorizer)(nil)
