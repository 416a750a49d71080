// Package configs loads refreshkeys settings.
//
// Settings live in a single TOML file, by default
// $XDG_CONFIG_HOME/refreshkeys/config.toml. Every value has a default, except
// the account email, which has to be set for account lookup to succeed.
//
// # Example
//
//	[account]
//	address = "https://my.1password.com"
//	email = "me@example.com"
//	shorthand = "my"
//
//	[keychain]
//	key_file = "id_ed25519"
//	fingerprint = "2A70B83FD3493624"
//	timeout_minutes = 1440
package configs
