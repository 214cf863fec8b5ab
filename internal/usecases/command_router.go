package usecases

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"saccobot/internal/entities"
	"saccobot/internal/interfaces"
)

// Flow states. A session exists exactly while an identity is mid-flow.
const (
	stateAwaitingPinOrPhone = "awaiting_pin_or_phone"
	stateOnboardName        = "onboard_name"
	stateOnboardNationalID  = "onboard_national_id"
	stateOnboardEmployer    = "onboard_employer"
	stateOnboardIncome      = "onboard_income"
	stateOnboardConsent     = "onboard_consent"
	stateAwaitingLoanAmount = "awaiting_loan_amount"
	stateAwaitingLoanReason = "awaiting_loan_reason"
)

const replyNotRegistered = "You are not registered. Use /register to create an account."

// CommandRouter parses slash-commands and drives the per-identity
// conversation flows (registration, onboarding, loan application, OTP).
// Messages for the same identity are serialized with a per-identity
// lock so each call owns that identity's session; different identities
// proceed in parallel. Callers may invoke Handle from any goroutine.
type CommandRouter struct {
	sessions interfaces.SessionStore
	users    interfaces.UserStore
	loans    interfaces.LoanStore
	profiles interfaces.ProfileStore
	otp      *OtpService

	// chatID -> *sync.Mutex
	identityLocks sync.Map

	// OTP delivery: when both are set, codes go out through the queue;
	// otherwise the code is echoed back (dev mode).
	queue     interfaces.Enqueuer
	otpSender entities.Sender
}

func NewCommandRouter(
	sessions interfaces.SessionStore,
	users interfaces.UserStore,
	loans interfaces.LoanStore,
	profiles interfaces.ProfileStore,
	otp *OtpService,
) *CommandRouter {
	return &CommandRouter{
		sessions: sessions,
		users:    users,
		loans:    loans,
		profiles: profiles,
		otp:      otp,
	}
}

// SetOtpDelivery wires asynchronous OTP delivery through the dispatch
// queue. Without it /send_otp falls back to returning the code inline.
func (r *CommandRouter) SetOtpDelivery(queue interfaces.Enqueuer, sender entities.Sender) {
	r.queue = queue
	r.otpSender = sender
}

func (r *CommandRouter) HasActiveSession(chatID string) bool {
	_, ok := r.sessions.Get(chatID)
	return ok
}

// Handle routes one inbound message. handled=false means the text is
// plain free text with no active flow; the caller decides whether to
// resolve it synchronously or enqueue it.
//
// Recognized commands win over an active session; anything else,
// command-shaped or not, is fed to the session as the expected field
// value while a flow is active.
func (r *CommandRouter) Handle(chatID, text string) (string, bool, error) {
	mu, _ := r.identityLocks.LoadOrStore(chatID, &sync.Mutex{})
	lock := mu.(*sync.Mutex)
	lock.Lock()
	defer lock.Unlock()

	trimmed := strings.TrimSpace(text)

	if cmd, arg, isCmd := parseCommand(trimmed); isCmd {
		reply, matched, err := r.dispatchCommand(chatID, cmd, arg)
		if matched || err != nil {
			return reply, true, err
		}
		if _, active := r.sessions.Get(chatID); active {
			reply, err := r.handleSession(chatID, trimmed)
			return reply, true, err
		}
		return "Unknown command. Try /help.", true, nil
	}

	if _, active := r.sessions.Get(chatID); active {
		reply, err := r.handleSession(chatID, trimmed)
		return reply, true, err
	}

	return "", false, nil
}

// parseCommand splits "/cmd arg ..." into its command and first argument
// token. Further tokens are ignored.
func parseCommand(text string) (cmd, arg string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", "", false
	}
	cmd = strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if len(fields) > 1 {
		arg = fields[1]
	}
	return cmd, arg, true
}

func (r *CommandRouter) dispatchCommand(chatID, cmd, arg string) (string, bool, error) {
	switch cmd {
	case "start", "help":
		return "SACCO assistant: /register, /onboard, /profile, /balance, " +
			"/apply_loan, /loans, /send_otp, /verify_otp <code>", true, nil

	case "register":
		r.sessions.Put(chatID, entities.NewSession(stateAwaitingPinOrPhone))
		return "To register, reply with either a 4-6 digit PIN or send your phone number to enable OTP login.", true, nil

	case "onboard":
		registered, err := r.isRegistered(chatID)
		if err != nil {
			return "", true, err
		}
		if !registered {
			return replyNotRegistered, true, nil
		}
		r.sessions.Put(chatID, entities.NewSession(stateOnboardName))
		return "Welcome to SACCO onboarding. What is your full name?", true, nil

	case "profile":
		reply, err := r.profileSummary(chatID)
		return reply, true, err

	case "balance":
		reply, err := r.balance(chatID)
		return reply, true, err

	case "apply_loan":
		reply, err := r.startApplyLoan(chatID)
		return reply, true, err

	case "loans":
		reply, err := r.listLoans(chatID)
		return reply, true, err

	case "send_otp":
		reply, err := r.sendOtp(chatID)
		return reply, true, err

	case "verify_otp":
		if arg == "" {
			return "Usage: /verify_otp 123456", true, nil
		}
		if r.otp.Verify(chatID, arg) {
			return "OTP verified. You are authenticated.", true, nil
		}
		return "Invalid or expired OTP.", true, nil
	}

	return "", false, nil
}

// handleSession advances the active flow by one step. Validation
// failures re-prompt without changing state or losing captured fields.
func (r *CommandRouter) handleSession(chatID, text string) (string, error) {
	sess, ok := r.sessions.Get(chatID)
	if !ok {
		return "Nothing in progress. Try /help.", nil
	}

	switch sess.State {
	case stateAwaitingPinOrPhone:
		return r.handlePinOrPhone(chatID, text)
	case stateOnboardName, stateOnboardNationalID, stateOnboardEmployer, stateOnboardIncome, stateOnboardConsent:
		return r.handleOnboarding(chatID, sess, text)
	case stateAwaitingLoanAmount:
		return r.handleLoanAmount(chatID, sess, text)
	case stateAwaitingLoanReason:
		return r.handleLoanReason(chatID, sess, text)
	}

	r.sessions.Delete(chatID)
	return "Something went wrong with this conversation. Try /help.", nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func (r *CommandRouter) handlePinOrPhone(chatID, text string) (string, error) {
	if isNumeric(text) && len(text) >= 4 && len(text) <= 6 {
		salt, hash, err := MakePinHash(text)
		if err != nil {
			return "", err
		}
		if _, err := r.users.Create(chatID, "", salt, hash); err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
		r.sessions.Delete(chatID)
		return "Registration successful. You can now use /balance and /apply_loan.", nil
	}

	// Anything else is taken as a phone number.
	phone := text
	user, err := r.users.GetByChatID(chatID)
	if err != nil {
		return "", err
	}
	if user == nil {
		// PIN still required for security; a placeholder is set until
		// the member registers a proper one.
		salt, hash, err := MakePinHash("0000")
		if err != nil {
			return "", err
		}
		if _, err := r.users.Create(chatID, phone, salt, hash); err != nil {
			return "", fmt.Errorf("create user: %w", err)
		}
		r.sessions.Delete(chatID)
		return "Phone saved. You can request an OTP with /send_otp. Please set a proper PIN later using /register.", nil
	}

	if err := r.users.UpdatePhone(user.ID, phone); err != nil {
		return "", fmt.Errorf("update phone: %w", err)
	}
	r.sessions.Delete(chatID)
	return "Phone updated. You can request an OTP with /send_otp.", nil
}

func (r *CommandRouter) handleOnboarding(chatID string, sess *entities.Session, text string) (string, error) {
	switch sess.State {
	case stateOnboardName:
		if len(text) < 3 {
			return "Please enter your full name (at least 3 characters).", nil
		}
		sess.Data["full_name"] = text
		sess.State = stateOnboardNationalID
		r.sessions.Put(chatID, sess)
		return "Thanks. Please enter your national ID number.", nil

	case stateOnboardNationalID:
		if len(text) < 5 {
			return "Please enter a valid national ID number.", nil
		}
		sess.Data["national_id"] = text
		sess.State = stateOnboardEmployer
		r.sessions.Put(chatID, sess)
		return "Who is your employer (or 'self-employed')?", nil

	case stateOnboardEmployer:
		if len(text) < 2 {
			return "Please enter your employer name.", nil
		}
		sess.Data["employer"] = text
		sess.State = stateOnboardIncome
		r.sessions.Put(chatID, sess)
		return "What is your estimated monthly income in KES?", nil

	case stateOnboardIncome:
		raw := strings.ReplaceAll(text, ",", "")
		income, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "Please enter a numeric income amount.", nil
		}
		if income <= 0 {
			return "Please enter a positive income amount.", nil
		}
		sess.Data["monthly_income"] = income
		sess.State = stateOnboardConsent
		r.sessions.Put(chatID, sess)
		return "Do you consent to storing this info for SACCO onboarding? Reply YES or NO.", nil

	case stateOnboardConsent:
		consent := strings.ToLower(text)
		if consent != "yes" && consent != "no" {
			return "Please reply YES or NO.", nil
		}
		user, err := r.users.GetByChatID(chatID)
		if err != nil {
			return "", err
		}
		if user == nil {
			return "You are not registered yet. Use /register first.", nil
		}

		income, _ := sess.Data["monthly_income"].(float64)
		profile := &entities.Profile{
			UserID:        user.ID,
			FullName:      stringField(sess, "full_name"),
			NationalID:    stringField(sess, "national_id"),
			Employer:      stringField(sess, "employer"),
			MonthlyIncome: income,
			Consent:       consent == "yes",
		}
		if err := r.profiles.Upsert(profile); err != nil {
			return "", fmt.Errorf("upsert profile: %w", err)
		}
		r.sessions.Delete(chatID)
		if consent == "yes" {
			return "Onboarding complete. You can now apply for a loan with /apply_loan.", nil
		}
		return "Onboarding saved, but consent not granted. You can still use /balance and basic features.", nil
	}

	return "Onboarding state invalid. Please start with /onboard.", nil
}

func stringField(sess *entities.Session, key string) string {
	s, _ := sess.Data[key].(string)
	return s
}

func (r *CommandRouter) startApplyLoan(chatID string) (string, error) {
	registered, err := r.isRegistered(chatID)
	if err != nil {
		return "", err
	}
	if !registered {
		return replyNotRegistered, nil
	}

	profile, err := r.profileByChat(chatID)
	if err != nil {
		return "", err
	}
	if profile == nil || !profile.Consent {
		return "Please complete onboarding first: /onboard.", nil
	}

	r.sessions.Put(chatID, entities.NewSession(stateAwaitingLoanAmount))
	return "How much would you like to borrow? (enter a number in KES)", nil
}

func (r *CommandRouter) handleLoanAmount(chatID string, sess *entities.Session, text string) (string, error) {
	amount, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return "Please enter a numeric amount.", nil
	}
	if amount <= 0 {
		return "Please enter a positive amount.", nil
	}

	sess.Data["amount"] = amount
	sess.State = stateAwaitingLoanReason
	r.sessions.Put(chatID, sess)
	return "Please briefly state the reason for the loan.", nil
}

func (r *CommandRouter) handleLoanReason(chatID string, sess *entities.Session, text string) (string, error) {
	amount, ok := sess.Data["amount"].(float64)
	if !ok {
		r.sessions.Delete(chatID)
		return "Loan amount missing; please start with /apply_loan.", nil
	}

	// Session survives a store fault so the captured amount is not lost;
	// the user can resend the reason instead of restarting the flow.
	loanID, err := r.loans.Create(chatID, amount, text)
	if err != nil {
		return "", fmt.Errorf("create loan: %w", err)
	}
	r.sessions.Delete(chatID)
	if loanID == 0 {
		return "Could not create loan. Are you registered? Use /register to create an account.", nil
	}

	hint := ""
	profile, err := r.profileByChat(chatID)
	if err == nil && profile != nil && profile.MonthlyIncome > 0 {
		limit := profile.MonthlyIncome * 1.5
		hint = fmt.Sprintf(" Based on your income, a typical pre-approval limit is ~KES %s.", formatThousands(limit))
	}
	return fmt.Sprintf("Loan request submitted (id: %d) and is pending approval.%s", loanID, hint), nil
}

func (r *CommandRouter) balance(chatID string) (string, error) {
	balance, registered, err := r.users.GetBalance(chatID)
	if err != nil {
		return "", err
	}
	if !registered {
		return replyNotRegistered, nil
	}
	return fmt.Sprintf("Your balance is: KES %.2f", balance), nil
}

func (r *CommandRouter) listLoans(chatID string) (string, error) {
	loans, err := r.loans.ListByChatID(chatID)
	if err != nil {
		return "", err
	}
	if len(loans) == 0 {
		return "No loans found.", nil
	}

	var sb strings.Builder
	for i, l := range loans {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("#%d: KES %.2f - %s (%s)", l.ID, l.Amount, l.Status, l.CreatedAt.Format("2006-01-02 15:04")))
	}
	return sb.String(), nil
}

func (r *CommandRouter) profileSummary(chatID string) (string, error) {
	profile, err := r.profileByChat(chatID)
	if err != nil {
		return "", err
	}
	if profile == nil {
		return "No profile on file. Start with /onboard.", nil
	}

	consent := "no"
	if profile.Consent {
		consent = "yes"
	}
	return fmt.Sprintf(
		"Name: %s\nNational ID: %s\nEmployer: %s\nMonthly income: KES %s\nConsent: %s",
		profile.FullName, profile.NationalID, profile.Employer,
		formatThousands(profile.MonthlyIncome), consent), nil
}

func (r *CommandRouter) sendOtp(chatID string) (string, error) {
	user, err := r.users.GetByChatID(chatID)
	if err != nil {
		return "", err
	}
	if user == nil || user.Phone == "" {
		return "No phone number on file; send your phone number first.", nil
	}

	code, recordID, err := r.otp.CreateAndStore(chatID)
	if err != nil {
		return "", fmt.Errorf("create otp: %w", err)
	}
	if recordID == 0 {
		return replyNotRegistered, nil
	}

	if r.queue != nil && r.otpSender != nil {
		r.queue.Enqueue(entities.DispatchJob{
			Platform: "whatsapp",
			To:       user.Phone,
			Kind:     entities.PayloadPrecomputed,
			Text:     "Your SACCO OTP: " + code,
			Sender:   r.otpSender,
		})
		return "OTP sent to your phone.", nil
	}

	// Dev fallback when no provider is configured.
	return "OTP (dev): " + code, nil
}

func (r *CommandRouter) isRegistered(chatID string) (bool, error) {
	user, err := r.users.GetByChatID(chatID)
	if err != nil {
		return false, err
	}
	return user != nil, nil
}

func (r *CommandRouter) profileByChat(chatID string) (*entities.Profile, error) {
	user, err := r.users.GetByChatID(chatID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return r.profiles.GetByUserID(user.ID)
}

// formatThousands renders an amount with comma separators and no
// decimals, e.g. 15000 -> "15,000".
func formatThousands(v float64) string {
	n := int64(math.Round(v))
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)
	out := strings.Join(parts, ",")
	if neg {
		out = "-" + out
	}
	return out
}
