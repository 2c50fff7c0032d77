// Package template defines the text template contract used to render the
// message banners, plus a pongo2-backed implementation in the pongo
// subpackage.
package template
