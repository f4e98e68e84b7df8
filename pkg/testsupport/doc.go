// Package testsupport holds shared fixtures for renderer and session tests.
package testsupport
