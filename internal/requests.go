package internal

// -- Request data -----------------------------------------------------------------------------------------------------

// Pagination describes a request that uses paging data to retrieve only a subset of the full result
type Pagination struct {
	// Position in the resultset to start the returned result at
	Offset uint
	// Number of items to return
	Limit uint
}

// Search describes a typical event listing request with a search term, pagination
// information and the flag to exclude events that already took place
type Search struct {
	Pagination
	// The string to search for
	Search string
	// Exclude events scheduled in the past
	Upcoming bool
}
