// Package listing holds the pure parts of paginated account listing: parsing
// "field:order" sort strings, the sortable field allowlist, the skip/limit window
// for a page and the page metadata derived from a total count.
package listing
