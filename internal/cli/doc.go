// Package cli holds the pieces of the chatflow command: layered
// configuration, result encoders, the CloudEvents trace sink and the demo,
// interactive and pipe runners.
package cli
