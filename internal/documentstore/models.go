package documentstore

import "fmt"

// UniqueID asks the backend to generate a document id on create.
const UniqueID = "unique()"

// Document is an arbitrary JSON object stored in a collection.
type Document map[string]any

// DocumentList is the backend's listing envelope.
type DocumentList struct {
	Total     int        `json:"total"`
	Documents []Document `json:"documents"`
}

// CollectionList is the listing of collections in a database.
type CollectionList struct {
	Total int
	Names []string
}

// CollectionRef addresses a collection. An empty Database means the client's
// configured database.
type CollectionRef struct {
	Database   string
	Collection string
}

// Collection is shorthand for a ref in the default database.
func Collection(id string) CollectionRef {
	return CollectionRef{Collection: id}
}

// Filter is a pre-encoded query predicate sent as one queries[] parameter.
type Filter string

// Equal matches documents whose field equals value.
func Equal(field, value string) Filter {
	return Filter(fmt.Sprintf(`equal("%s","%s")`, field, value))
}

// Raw passes a caller-encoded predicate through unchanged.
func Raw(query string) Filter {
	return Filter(query)
}

type collectionsResponse struct {
	Total       int `json:"total"`
	Collections []struct {
		Name string `json:"name"`
	} `json:"collections"`
}

type errorResponse struct {
	Message string `json:"message"`
}
