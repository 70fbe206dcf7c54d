// Package opdef loads the operator definitions that constrain what can
// be appended to a block. Every operation type — elementary or
// composite — is declared in an HCL manifest embedded with the binary:
// its input and output slots, whether a slot accepts multiple
// variables, and the type of each attribute. The Registry validates
// every appended operation against its definition, so a malformed
// program is rejected at construction time rather than handed to the
// executor.
package opdef
