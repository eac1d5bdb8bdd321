package approval

import (
	"github.com/ksred/watchdog/internal/queue"
	"github.com/ksred/watchdog/internal/record"
)

// Approvable is a queued record that collects approval flags
type Approvable interface {
	Approvals() record.Flags
	Approve(a record.Approver) error
	// String formats the record with its flags
	String() string
	// Stripped formats the record without flags for the destination queue
	Stripped() string
}

// Workflow is a source queue that promotes into a destination queue
// once both approvers have signed off.
type Workflow struct {
	Name        string
	Source      queue.Name
	Destination queue.Name
	// Target names the destination in operator messages
	Target string
	// actionSuffix distinguishes the audit action names of the two workflows
	actionSuffix string
	parse        func(line string) (Approvable, error)
}

// Orders promotes new orders into the terminal's approved queue
var Orders = Workflow{
	Name:        "orders",
	Source:      queue.Orders,
	Destination: queue.Approved,
	Target:      "approved",
	parse: func(line string) (Approvable, error) {
		o, err := record.ParseOrder(line)
		if err != nil {
			return nil, err
		}
		return o, nil
	},
}

// Modifications promotes stop loss / take profit changes of open tickets
var Modifications = Workflow{
	Name:         "modifications",
	Source:       queue.ToBeModified,
	Destination:  queue.Modified,
	Target:       "modified",
	actionSuffix: "_to_be_modified",
	parse: func(line string) (Approvable, error) {
		m, err := record.ParseModification(line)
		if err != nil {
			return nil, err
		}
		return m, nil
	},
}

// Workflows lists every workflow by name
var Workflows = map[string]Workflow{
	Orders.Name:        Orders,
	Modifications.Name: Modifications,
}

// Parse decodes a line of the workflow's source queue
func (w Workflow) Parse(line string) (Approvable, error) {
	return w.parse(line)
}

func (w Workflow) approveAction(a record.Approver) Action {
	return Action("add_" + string(a) + w.actionSuffix)
}
