// Package model defines the contact request collected by the pickup form. A
// ContactRequest is a flat record of string fields keyed by the same names the
// form inputs use (`name`, `postalCode`, `movePrefecture`, ...), plus the list
// of attached images. Defaults returns the record a session starts from and
// is reset to after a successful submission. The field catalog (Fields,
// Lookup) describes every input once so validators, renderers and the
// summary composer agree on labels, option sets and address groups.
package model
