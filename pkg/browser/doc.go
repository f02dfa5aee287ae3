// Package browser manages browser execution contexts for automated
// end-to-end test runs through Playwright.
//
// The package is built around a small number of cooperating pieces:
//
//  1. Registry: a keyed collection of isolated sessions, one per logical
//     test "stake", with a default-session fallback when no key is given.
//  2. Controller: owns one browser context per session (local persistent
//     launch, ephemeral launch with video, or remote attach) and moves it
//     through an explicit lifecycle from Uninitialized through Starting,
//     Ready and Recreating to Closed.
//  3. Tab reuse: pages are reused by recency after a responsiveness probe,
//     so long-lived device-farm tabs are never abandoned and stale local
//     tabs are never trusted.
//  4. Stability tracking: page-load completion is inferred from quiescence
//     of filtered network activity, because no native idle signal is
//     trustworthy across real sites.
//  5. Mutation bridge: an injected observer reports DOM additions and text
//     changes across shadow roots and same-origin iframes back to the host,
//     which fans them out to subscribers.
//  6. Artifacts: screenshots (optionally annotated with an element bounding
//     box and metadata panel), per-context video, and trace archives.
//
// # Error policy
//
// Only two error classes cross the package boundary: configuration errors
// (requested browser binary not installed) and unrecoverable context
// construction failures. Everything else, including extension prep, cookie
// injection, tracing, video finalization, screenshot capture and stability
// waits, degrades with a logged Outcome and never aborts the enclosing
// operation.
//
// # Example
//
//	mgr := browser.NewManager(settings)
//	if err := mgr.Initialize(); err != nil { ... }
//	defer mgr.Shutdown()
//
//	if err := mgr.Navigate("checkout", "https://shop.example.com"); err != nil { ... }
//	mgr.WaitForPageLoad("checkout", 0)
//	mgr.TakeScreenshot("checkout", "cart", browser.ScreenshotOptions{FullPage: true})
package browser
