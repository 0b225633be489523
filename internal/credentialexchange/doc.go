// Package credentialexchange hands an already-issued credential bundle
// off to its consumers. It covers the credential_process stdout
// contract, named sections of the AWS shared credentials file, and an
// OS secret-store cache holding serialized bundles per label, plus the
// STS GetCallerIdentity probe deciding whether a cached bundle is
// still worth reusing.
package credentialexchange
