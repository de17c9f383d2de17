// Package mocks holds generated collaborator doubles for edmd's capability
// interfaces. Run `go generate ./...` to (re)produce them; nothing here is
// committed, matching how the rest of this codebase treats mockgen output.
package mocks

//go:generate mockgen -write_package_comment=false -package=mocks -destination=mock_collaborators_test.go github.com/dynamocore/edmd Dynamics,ParticleStore,ObserverBus
