package auth

// Routes the client navigates to around the authentication lifecycle.
const (
	RouteLogin                = "/auth/login"
	RouteDashboard            = "/dashboard"
	RouteAdminDashboard       = "/admin/dashboard"
	RouteCandidateApplication = "/candidate/application"
)

// RedirectAfterLogin picks the post-login destination, in precedence order:
// a route saved from a prior unauthenticated access attempt (consumed on
// use), the candidate application flow for candidate-role users, the
// administrator landing for superadmin accounts, and the generic dashboard
// for everyone else.
func (c *Controller) RedirectAfterLogin() string {
	if url, ok := c.store.TakeRedirectURL(); ok && url != "" {
		return url
	}

	user := c.CurrentUser()
	if user.HasRole("candidate") {
		return RouteCandidateApplication
	}
	if user.IsSuperAdmin() {
		return RouteAdminDashboard
	}
	return RouteDashboard
}

// RedirectLogoutUser is the destination after a logout. Navigation itself is
// a caller responsibility.
func (c *Controller) RedirectLogoutUser() string {
	return RouteLogin
}

// SaveRedirectURL records where an unauthenticated access attempt was
// heading, so the next successful login can resume there.
func (c *Controller) SaveRedirectURL(url string) error {
	return c.store.SaveRedirectURL(url)
}
