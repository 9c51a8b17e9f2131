package routes

// Component names used by the application's route table.
const (
	MainLayout           = "MainLayout"
	AuthenticationLayout = "AuthenticationLayout"
	PageHome             = "PageHome"
	PageSearch           = "PageSearch"
	PageChat             = "PageChat"
	PageUsers            = "PageUsers"
	PageCamera           = "PageCamera"
	PageProfile          = "PageProfile"
	PageUserProfile      = "PageUserProfile"
	PageLogin            = "PageLogin"
	PageSignup           = "PageSignup"
	ErrorNotFound        = "ErrorNotFound"
)

// OtherProfile names the route showing another user's profile.
const OtherProfile = "otherprofile"

// Application returns the application's routes, using load to build the
// loader for each component name.
func Application(load func(component string) Loader) []Route {
	return []Route{
		{
			Path: "/",
			Load: load(MainLayout),
			Children: []Route{
				{Path: "", Load: load(PageHome)},
				{Path: "/search", Load: load(PageSearch)},
				{Path: "/chat", Load: load(PageChat)},
				{Path: "/users", Load: load(PageUsers)},
				{Path: "/camera", Load: load(PageCamera)},
				{Path: "/profile", Load: load(PageProfile)},
				{Path: "/profile/:id", Name: OtherProfile, Load: load(PageUserProfile)},
			},
		},
		{
			Path: "/auth",
			Load: load(AuthenticationLayout),
			Children: []Route{
				{Path: "/login", Load: load(PageLogin)},
				{Path: "/signup", Load: load(PageSignup)},
			},
		},
		// keep last
		{Path: "/:catchAll(.*)*", Load: load(ErrorNotFound)},
	}
}
