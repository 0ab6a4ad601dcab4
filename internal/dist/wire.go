package dist

// Wire types shared by the coordinator server and the HTTP group client.

// JoinRequest registers one rank with a session.
type JoinRequest struct {
	Session string `json:"session"`
	Rank    int    `json:"rank"`
	Size    int    `json:"size"`
}

// JoinResponse carries the worker token used on later calls.
type JoinResponse struct {
	Token   string `json:"token"`
	Session string `json:"session"`
	Rank    int    `json:"rank"`
	Size    int    `json:"size"`
}

// ReduceRequest contributes one value to a reduction round. Each client
// numbers its rounds per operation; the coordinator matches contributions
// with the same op and seq.
type ReduceRequest struct {
	Token string  `json:"token"`
	Op    string  `json:"op"`
	Seq   int     `json:"seq"`
	Value float64 `json:"value"`
}

// ReduceResponse carries the combined value once every rank contributed.
type ReduceResponse struct {
	Op    string  `json:"op"`
	Seq   int     `json:"seq"`
	Value float64 `json:"value"`
}

// SessionStatus describes one session for inspection.
type SessionStatus struct {
	Session string `json:"session"`
	Size    int    `json:"size"`
	Joined  int    `json:"joined"`
	Pending int    `json:"pending_rounds"`
}

type errorBody struct {
	Error string `json:"error"`
}
