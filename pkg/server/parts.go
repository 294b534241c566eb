// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"errors"
	"strings"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
	"google.golang.org/genai"
)

var errNoText = errors.New("message has no text content")

// messageText joins the text parts of msg. Non-text parts are ignored.
func messageText(msg *a2a.Message) string {
	if msg == nil {
		return ""
	}
	var texts []string
	for _, part := range msg.Parts {
		switch p := part.(type) {
		case a2a.TextPart:
			texts = append(texts, p.Text)
		case *a2a.TextPart:
			if p != nil {
				texts = append(texts, p.Text)
			}
		}
	}
	return strings.Join(texts, "\n")
}

func toGenaiRole(role a2a.MessageRole) genai.Role {
	if role == a2a.MessageRoleAgent {
		return genai.RoleModel
	}
	return genai.RoleUser
}

// toGenaiContents builds the model conversation for a request: the stored
// task history, oldest first, followed by the incoming message. Messages
// without text are skipped. It fails only when the incoming message has no
// text.
func toGenaiContents(reqCtx *a2asrv.RequestContext) ([]*genai.Content, error) {
	msg := reqCtx.Message
	text := messageText(msg)
	if strings.TrimSpace(text) == "" {
		return nil, errNoText
	}

	var contents []*genai.Content
	if reqCtx.StoredTask != nil {
		for _, h := range reqCtx.StoredTask.History {
			if h == nil || h.ID == msg.ID {
				continue
			}
			if t := messageText(h); t != "" {
				contents = append(contents, genai.NewContentFromText(t, toGenaiRole(h.Role)))
			}
		}
	}

	return append(contents, genai.NewContentFromText(text, genai.RoleUser)), nil
}
