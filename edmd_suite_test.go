package edmd_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestEdmd(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "EDMD Suite")
}
