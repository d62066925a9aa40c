// Package engagementengine implements the engagement state engine inside the
// community-experience context.
//
// The module turns poll votes, likes and notifications into consistent view
// snapshots for one authenticated viewer. Every mutation goes to the
// authoritative store first and is followed by a resync; local arithmetic on
// counts is never trusted. Infrastructure stays behind ports so the same
// engine runs against the in-memory store, PostgreSQL, or test fakes.
package engagementengine
