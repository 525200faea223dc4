// Package applescript drives the Messages app through osascript. Every
// external action is a Command value handed to one Executor, so retry and
// backoff behavior is written once for all action kinds.
package applescript

import (
	"fmt"
	"strings"
)

// escaper handles the four characters AppleScript string literals cannot
// carry raw. Escaping must round-trip through AppleScript's own unescaping.
var escaper = strings.NewReplacer(
	`\`, `\\`,
	`"`, `\"`,
	"\n", `\n`,
	"\r", `\r`,
)

// Escape prepares text for embedding inside a double-quoted AppleScript
// string literal.
func Escape(text string) string {
	return escaper.Replace(text)
}

// sendScript builds the script that delivers text to a recipient through
// the Messages app.
func sendScript(recipient, text string) string {
	return fmt.Sprintf(`tell application "Messages"
    set targetService to 1st account whose service type = iMessage
    set targetBuddy to participant "%s" of targetService
    send "%s" to targetBuddy
end tell`, Escape(recipient), Escape(text))
}

// showTypingScript opens a compose window for the recipient and types a dot,
// which makes the counterparty see a typing indicator.
func showTypingScript(recipient string) string {
	return fmt.Sprintf(`tell application "Messages"
    activate
end tell

delay 0.5

tell application "System Events"
    tell process "Messages"
        try
            set frontmost to true
            delay 0.3

            keystroke "n" using command down
            delay 0.4

            keystroke "%s"
            delay 0.4

            keystroke tab
            delay 0.2

            keystroke "."

        on error errMsg
            log errMsg
        end try
    end tell
end tell`, Escape(recipient))
}

// clearTypingScript removes the dot and dismisses the compose window opened
// by showTypingScript.
const clearTypingScript = `tell application "System Events"
    tell process "Messages"
        try
            keystroke "a" using command down
            delay 0.05
            key code 51
            delay 0.05
            key code 53
        on error errMsg
            log errMsg
        end try
    end tell
end tell`
