// Package commandtest provides a scripted command.Runner for tests.
package commandtest
