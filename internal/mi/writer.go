// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package mi

import (
	"fmt"
	"strings"

	"github.com/eclipse-cdt/cdt-sub128/pkg/resiliency"
)

func (s *Session) writerLoop() {
	defer s.wg.Done()
	defer s.writerAlive.Store(false)
	defer func() {
		if panicErr := resiliency.MakePanicError(recover(), s.log); panicErr != nil {
			s.recordLoopError(fmt.Errorf("command writer: %w", panicErr))
		}
	}()

	for {
		cmd, popErr := s.queue.Pop(s.ctx)
		if popErr != nil {
			return
		}
		s.transmit(cmd)
	}
}

func (s *Session) transmit(cmd *Command) {
	if cmd.completed.Load() {
		// Abandoned between Pop() and now.
		return
	}

	if !cmd.IsRaw() {
		token := s.tokens.Next()
		for s.table.Has(token) {
			// Only possible after the counter wrapped around; never reuse a token that is still outstanding.
			token = s.tokens.Next()
		}
		cmd.token.Store(int64(token))
		s.table.Add(token, cmd)
	}

	// Stepping commands typed as CLI text produce no structured notification we could rely on,
	// so the inferior is marked running before the debugger can answer.
	class := cmd.Classification()
	if class.Category == CLIStepping {
		s.inferior.setState(InferiorRunning)
	}

	text := cmd.wireText()
	s.log.V(1).Info("MI >", "line", strings.TrimSuffix(text, "\n"))

	if writeErr := s.transport.WriteLine(text); writeErr != nil {
		if class.Category == CLIStepping {
			s.inferior.resumeRejected()
		}
		s.onTransportFailure(fmt.Errorf("%w: %w", ErrTransportFailed, writeErr))
		return
	}

	if cmd.IsRaw() {
		cmd.complete(Output{}, nil)
	}

	if class.Category == CLIStepping {
		s.dispatcher.dispatch([]Event{{
			Kind:        EventRunning,
			Token:       cmd.Token(),
			RunningType: class.RunningType,
			Command:     cmd.Operation(),
		}})
	}
}
