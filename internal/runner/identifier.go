package runner

import "strings"

// TestIdentifier is the handle the launcher assigns to one package, test or subtest.
//
// Listeners borrow it for the duration of a single callback; it is never mutated after
// the execution it names has finished.
type TestIdentifier struct {
	// UniqueID is "<package>" for packages and "<package>::<test>" for tests.
	UniqueID string
	Package  string
	// Name is the go test name, including subtest segments ("TestLogin/admin").
	Name string
	// DisplayName is the human readable name used when talking to a TMS.
	DisplayName string

	container bool
}

// IsContainer reports whether the execution groups other executions (a package, or a
// test that ran subtests) rather than being a test case of its own.
func (id TestIdentifier) IsContainer() bool {
	return id.container
}

func packageIdentifier(pkg string) TestIdentifier {
	return TestIdentifier{
		UniqueID:    pkg,
		Package:     pkg,
		DisplayName: pkg,
		container:   true,
	}
}

func testIdentifier(pkg, name string) TestIdentifier {
	return TestIdentifier{
		UniqueID:    testKey(pkg, name),
		Package:     pkg,
		Name:        name,
		DisplayName: name,
	}
}

func testKey(pkg, name string) string {
	return pkg + "::" + name
}

// parentName returns the enclosing test of a subtest ("TestA/b/c" -> "TestA/b").
func parentName(name string) (string, bool) {
	i := strings.LastIndex(name, "/")
	if i <= 0 {
		return "", false
	}
	return name[:i], true
}
