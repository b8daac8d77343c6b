package domain

type Response int

const (
	Reject Response = iota
	Accept
	End
)

func (r Response) String() string {
	switch r {
	case Accept:
		return "accept"
	case Reject:
		return "reject"
	case End:
		return "end"
	}
	return "unknown"
}
