// Package branding holds the product name shown to users.
package branding

// AppName is the user-facing product name.
const AppName = "Expert Finder"
