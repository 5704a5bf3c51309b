package server

// Route path constants
const (
	RouteIndex = "/"

	// Auth Routes - Login & Logout
	RouteLogin             = "/login"
	RouteAuthLogin         = "/auth/login"
	RouteAuthLoginProvider = "/auth/login/{provider}"
	RouteAuthLogout        = "/auth/logout"

	// Auth Routes - Password Management
	RouteForgotPassword = "/forgot-password"
	RouteResetPassword  = "/reset-password"

	// Protected pages
	RouteDashboard = "/dashboard"
	RouteWidgets   = "/widgets"

	// API Routes
	RouteAPIAuthStatus    = "/api/auth/status"
	RouteAPIAuthTokenInfo = "/api/auth/token-info"
	RouteAPIAuthRefresh   = "/api/auth/refresh"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"

	// Static Asset Routes (patterns)
	RouteStaticAssets = "/assets/{file}"
	RouteStaticCSS    = "/css/{file}"
	RouteStaticJS     = "/js/{file}"

	RouteSilentCheckSSO = "/assets/silent-check-sso.html"
)
