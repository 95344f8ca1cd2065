package security

// In-memory client registry (replace with DB/config later)
type Client struct {
	ID      string
	Secret  string
	Perms   []string // e.g. {"orders.read","orders.write"}
	Enabled bool
}

var Clients = map[string]Client{
	"app-customer":   {ID: "app-customer", Secret: "app-customer-secret", Perms: []string{"orders.read", "orders.write"}, Enabled: true},
	"app-backoffice": {ID: "app-backoffice", Secret: "backoffice-secret", Perms: []string{"orders.read", "orders.write", "orders.admin"}, Enabled: true},
	"svc-scheduler":  {ID: "svc-scheduler", Secret: "scheduler-secret", Perms: []string{"orders.read", "orders.write", "orders.admin"}, Enabled: true},
	"svc-analytics":  {ID: "svc-analytics", Secret: "ana-secret", Perms: []string{"orders.read"}, Enabled: true},
}
