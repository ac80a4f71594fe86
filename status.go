// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ackq

import "fmt"

// Status is the lifecycle state of a queued message.
//
//	New → Sent → {Confirmed | Failure}
//	Confirmed → Completed
//	Failure → Resending → ResendingFinished → ResendingFinishedCompleted
//
// Completed and ResendingFinishedCompleted are terminal.
type Status uint8

const (
	StatusNew Status = iota
	StatusSent
	StatusConfirmed
	StatusFailure
	StatusResending
	StatusResendingFinished
	StatusResendingFinishedCompleted
	StatusCompleted
)

var statusNames = [...]string{
	StatusNew:                        "NEW",
	StatusSent:                       "SENT",
	StatusConfirmed:                  "CONFIRMED",
	StatusFailure:                    "FAILURE",
	StatusResending:                  "RESENDING",
	StatusResendingFinished:          "RESENDING_FINISHED",
	StatusResendingFinishedCompleted: "RESENDING_FINISHED_COMPLETED",
	StatusCompleted:                  "COMPLETED",
}

func (s Status) String() string {
	if int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", uint8(s))
}

// Done reports whether s is terminal.
func (s Status) Done() bool {
	return s == StatusCompleted || s == StatusResendingFinishedCompleted
}

func (s Status) resending() bool {
	return s == StatusResending || s == StatusResendingFinished
}

// ParseStatus returns the Status named by name.
func ParseStatus(name string) (Status, error) {
	for i, n := range statusNames {
		if n == name {
			return Status(i), nil
		}
	}
	return 0, fmt.Errorf("ackq: unknown status %q", name)
}
