// Package surface holds headless presenters for the app's screens. A UI
// toolkit binds widgets to them; the presenters own navigation, toasts and
// displayed state.
package surface

// Route names a screen.
type Route string

const (
	RouteRegister Route = "register"
	RouteSignIn   Route = "signin"
	RouteScan     Route = "scan"
	// RouteBack returns to the previous screen.
	RouteBack Route = "back"
)

// Navigator switches screens.
type Navigator interface {
	Navigate(Route)
}

// Notifier shows short transient messages.
type Notifier interface {
	Toast(msg string)
}

// Permissions reports host-platform grants.
type Permissions interface {
	CameraGranted() bool
}
