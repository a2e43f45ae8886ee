// Package mail delivers notification emails. SMTP is the production sender;
// Log only writes the message to the structured log and is meant for local
// runs.
package mail
