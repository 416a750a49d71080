// Package onepassword reads the SSH and GPG key passphrases from 1Password
// through the op command line tool.
//
// Authentication is a two step contract. TryCachedSession reuses a session
// token already exported as OP_SESSION_<shorthand> when op still accepts it.
// Otherwise InteractiveSignIn runs `op signin <shorthand> --raw` with the
// user's terminal attached and captures the new token. Both require the
// account to be registered in the op config file, see LookupAccount.
//
// FetchCredentialPair then lists documents, picks the two configured titles,
// and reads the field labelled "passphrase" from each.
package onepassword
