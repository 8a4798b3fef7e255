package generr

type mErr struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e *mErr) Error() string {
	return e.Msg
}

var (
	ParseParam  = &mErr{400, "invalid parameter"}
	ServerError = &mErr{500, "server error"}
)

var (
	ReadDB   = &mErr{698, "read database failed"}
	UpdateDB = &mErr{699, "update database failed"}

	NoCustomer       = &mErr{701, "customer not found"}
	NoSlot           = &mErr{702, "reward slot not found"}
	NoReferrer       = &mErr{703, "referral code not found"}
	InvalidAmount    = &mErr{704, "invalid amount"}
	AlreadyClaimed   = &mErr{705, "daily login already claimed"}
	ConcurrentUpdate = &mErr{706, "ledger changed concurrently, retry"}
	DuplicatePhone   = &mErr{707, "phone already registered"}

	BalanceNotEnough = &mErr{901, "insufficient reward balance"}
)
