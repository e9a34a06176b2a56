// Package testsupport provides shared fixtures for package tests: temp-dir
// configs, opened stores, and a fake chat completion server.
package testsupport
