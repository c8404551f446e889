// Package docs finds per-unit paperwork (registrations, inspection
// cards, insurance certificates) in a flat directory.
//
// Files are named "<unit>-<description>.<ext>", e.g.
// "4021-registration.pdf". There is no index; lookup is a glob.
package docs
