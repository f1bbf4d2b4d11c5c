package gate

// Action describes the kind of operation a user wants to perform.
type Action string

const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"

	// Invoice lifecycle.
	ActionIssue  Action = "issue"
	ActionPay    Action = "pay"
	ActionVoid   Action = "void"
	ActionRender Action = "render"
	ActionExport Action = "export"

	// Assistant queries.
	ActionAsk Action = "ask"
)

// CRUD returns the five basic actions every resource supports.
func CRUD() []Action {
	return []Action{ActionList, ActionView, ActionCreate, ActionUpdate, ActionDelete}
}
