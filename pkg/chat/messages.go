package chat

// DemoMessages is a fixed set of 50 chat lines covering every category.
//
//	0-5   greeting
//	6-12  question
//	13-19 command
//	20-24 farewell
//	25-29 gratitude
//	30-33 apology
//	34-37 agreement
//	38-41 negation
//	42-49 general
var DemoMessages = []string{
	"Hello there!",
	"Hi, how are you doing?",
	"Hey!",
	"Good morning everyone",
	"Greetings from the team",
	"Howdy partner",

	"What time is the meeting?",
	"How do I reset my password?",
	"Can you explain this error?",
	"Where is the configuration file?",
	"Why did the deployment fail?",
	"When is the next release?",
	"Is this the right approach?",

	"Show me the logs",
	"List all active users",
	"Find the broken test",
	"Please delete the old backups",
	"Create a new branch for this feature",
	"Run the integration tests",
	"Help me understand this code",

	"Goodbye everyone!",
	"See you tomorrow",
	"Take care and have a good weekend",
	"Bye for now",
	"Good night all",

	"Thanks for the help!",
	"Thank you so much",
	"I really appreciate your time",
	"Thx for the quick response",
	"Thanks, that fixed it!",

	"Sorry for the late reply",
	"I apologize for the confusion",
	"My bad, I sent the wrong file",
	"Excuse me, I have a question",

	"Yes, that looks correct",
	"Sure, let me do that",
	"Absolutely, I agree with the plan",
	"Okay, sounds good to me",

	"No, that is not what I meant",
	"Nope, try again",
	"Don't do that please",
	"Never mind, I found it",

	"The server is running on port 3000",
	"I pushed the changes to main",
	"The build passed all checks",
	"Meeting notes are in the shared drive",
	"Version 2.1 is ready for QA",
	"The database migration completed",
	"Logs indicate a memory spike at noon",
	"All tickets for this sprint are assigned",
}

// demoRanges maps the DemoMessages index ranges to their category.
var demoRanges = []struct {
	from, to int
	category Category
}{
	{0, 5, Greeting},
	{6, 12, Question},
	{13, 19, Command},
	{20, 24, Farewell},
	{25, 29, Gratitude},
	{30, 33, Apology},
	{34, 37, Agreement},
	{38, 41, Negation},
	{42, 49, General},
}

// DemoCategory returns the category DemoMessages[i] belongs to.
func DemoCategory(i int) Category {
	for _, r := range demoRanges {
		if i >= r.from && i <= r.to {
			return r.category
		}
	}
	return ""
}
