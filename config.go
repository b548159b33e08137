//  Copyright 2015 by Leipzig University Library, http://ub.uni-leipzig.de
//                    The Finc Authors, http://finc.info
//                    Martin Czygan, <martin.czygan@uni-leipzig.de>
//
// This file is part of some open source application.
//
// Some open source application is free software: you can redistribute
// it and/or modify it under the terms of the GNU General Public
// License as published by the Free Software Foundation, either
// version 3 of the License, or (at your option) any later version.
//
// Some open source application is distributed in the hope that it will
// be useful, but WITHOUT ANY WARRANTY; without even the implied warranty
// of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Foobar.  If not, see <http://www.gnu.org/licenses/>.
//
// @license GPL-3.0+ <http://spdx.org/licenses/GPL-3.0+>
//
package oaiharvest

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 100000 * time.Millisecond

// Config is what the engine needs to know about a repository. It is read
// only during a call.
type Config struct {
	Endpoint      string `env:"OAI_ENDPOINT"`
	UserAgent     string `env:"OAI_USER_AGENT"`
	TimeoutMillis int    `env:"OAI_TIMEOUT_MS" envDefault:"100000"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	return env.ParseAs[Config]()
}

// Timeout returns the per attempt timeout, DefaultTimeout if unset or not
// positive.
func (c Config) Timeout() time.Duration {
	if c.TimeoutMillis <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.TimeoutMillis) * time.Millisecond
}

func (c Config) userAgent() string {
	if c.UserAgent == "" {
		return DefaultUserAgent
	}
	return c.UserAgent
}
