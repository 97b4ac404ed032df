// Package mail delivers recovery emails.
//
// [LogMailer] prints messages and is what development setups use;
// [SMTPMailer] talks to a relay. Both implement [Mailer].
package mail
