// internal/domain/models/site.go
package models

// DefaultSiteName is shown in page titles and the header when no name is
// configured.
const DefaultSiteName = "Café Inclusivo"
