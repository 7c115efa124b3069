package upload

// State is the stage a run is in.
type State string

// Run states, in pipeline order.
const (
	Idle             State = "idle"
	Quoting          State = "quoting"
	Reconciling      State = "reconciling"
	CatalogChecking  State = "catalog_checking"
	CatalogAssigning State = "catalog_assigning"
	CatalogUpdating  State = "catalog_updating"
	Uploading        State = "uploading"
	Completed        State = "completed"
	Cancelled        State = "cancelled"
	Failed           State = "failed"
)

// String implements fmt.Stringer.
func (s State) String() string {
	return string(s)
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool {
	return s == Completed || s == Cancelled || s == Failed
}
