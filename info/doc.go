// Package info holds the management.info settings and the contributors they drive.
//
// Two settings select how much build and git metadata is exposed:
//
//	management.info.build.mode = "simple" | "full" | "off"
//	management.info.git.mode   = "simple" | "full" | "off"
//
// Both default to simple. Metadata comes from the build info Go embeds in every
// binary, so nothing has to be injected through linker flags.
package info
