package views

// NavigateToHome signals return to the home menu.
type NavigateToHome struct{}

// NavigateToLoad signals navigation to the db file picker.
type NavigateToLoad struct{}

// NavigateToRecent signals navigation to the recent-projects view.
type NavigateToRecent struct{}

// NavigateToMap signals transition to the map view for a project db.
type NavigateToMap struct {
	DBPath string
}
