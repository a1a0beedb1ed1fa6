// Package application decide, sem conhecer HTTP, se um chamador ainda tem
// orçamento de análises (Service) e se há vaga para mais uma análise
// simultânea (ConcurrencyService).
package application
