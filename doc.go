// Package taskvault automates routine back-office work (mailbox triage,
// posting, invoicing) through a folder-based task lifecycle: watchers poll
// external integrations and propose tasks, an approval policy gates risky
// ones behind a human decision, and approved tasks execute through the
// integration that proposed them. The folder tree - the vault - is both the
// persistence layer and the user interface: a task's state is the folder
// holding its file, and operators act by inspecting and deciding what sits
// in Pending_Approval.
//
// When a downstream service is unreachable, operations buffer in a durable
// per-integration queue and replay in order once the service returns.
//
// Typical embedding:
//
//	srv := taskvault.New(
//		taskvault.WithVaultURL("/var/lib/assistant/vault"),
//		taskvault.WithIntegrations(exec.New()),
//	)
//	rt := srv.Runtime()
//	if err := rt.Start(ctx); err != nil { ... }
//	defer rt.Shutdown()
//
// For details see the individual sub-packages, in particular service/engine
// (transitions), service/store (folder persistence) and policy (approval
// rules).
package taskvault
