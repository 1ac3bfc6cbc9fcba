// Package signin is the credential exchange collaborator. It sends users
// through an OAuth authorization-code flow, shows them a short numeric
// verification code on completion, and later redeems that code for the
// access token the search pipeline needs.
package signin
